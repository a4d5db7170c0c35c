package utils

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// ApplyFilter runs the jq expression filter on the JSON form of v. A single
// output is returned as is, several outputs are returned as a list.
func ApplyFilter(filter string, v interface{}) (interface{}, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("could not parse filter: %w", err)
	}

	marshalled, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var input interface{}
	if err := json.Unmarshal(marshalled, &input); err != nil {
		return nil, err
	}

	var results []interface{}
	iter := query.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}

		if err, ok := result.(error); ok {
			return nil, fmt.Errorf("could not apply filter: %w", err)
		}

		results = append(results, result)
	}

	if len(results) == 1 {
		return results[0], nil
	}

	return results, nil
}
