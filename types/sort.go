/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSort is returned when a sort property does not exist on the model.
var ErrInvalidSort = errors.New("invalid sort property")

// Order is a single "property direction" pair.
type Order struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction"`
}

func (o Order) String() string { return o.Property + ": " + o.Direction.Name() }

// Asc returns an ascending order on property.
func Asc(property string) Order { return Order{Property: property, Direction: ASC} }

// Desc returns a descending order on property.
func Desc(property string) Order { return Order{Property: property, Direction: DESC} }

// Sort is an ordered list of Orders; an empty Sort means unsorted.
type Sort []Order

// Unsorted returns an empty Sort.
func Unsorted() Sort { return Sort{} }

// SortBy orders every property in the same direction.
func SortBy(direction Direction, properties ...string) Sort {
	sort := make(Sort, 0, len(properties))
	for _, p := range properties {
		sort = append(sort, Order{Property: p, Direction: direction})
	}
	return sort
}

func (s Sort) IsSorted() bool { return len(s) > 0 }

// And appends the orders of other.
func (s Sort) And(other Sort) Sort {
	merged := make(Sort, 0, len(s)+len(other))
	merged = append(merged, s...)
	return append(merged, other...)
}

func (s Sort) String() string {
	if !s.IsSorted() {
		return "UNSORTED"
	}
	parts := make([]string, 0, len(s))
	for _, o := range s {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ",")
}

// ParseSort parses one "sort" request parameter of the form
// "prop[,prop...][,asc|desc]". A missing direction means ASC.
func ParseSort(param string) (Sort, error) {
	elements := strings.Split(param, ",")
	direction := ASC
	if len(elements) > 1 {
		if d, err := ParseDirection(elements[len(elements)-1]); err == nil {
			direction = d
			elements = elements[:len(elements)-1]
		}
	}
	sort := make(Sort, 0, len(elements))
	for _, e := range elements {
		p := strings.TrimSpace(e)
		if p == "" {
			continue
		}
		sort = append(sort, Order{Property: p, Direction: direction})
	}
	if len(sort) == 0 {
		return nil, fmt.Errorf("%w: empty sort parameter %q", ErrInvalidSort, param)
	}
	return sort, nil
}

// ParseSorts parses repeated "sort" parameters in order.
func ParseSorts(params []string) (Sort, error) {
	result := Unsorted()
	for _, p := range params {
		s, err := ParseSort(p)
		if err != nil {
			return nil, err
		}
		result = result.And(s)
	}
	return result, nil
}
