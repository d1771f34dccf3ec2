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

import "encoding/json"

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes a zero-based page index, a page size and ordering.
type PageRequest struct {
	page int
	size int
	sort Sort
}

// Of constructs a PageRequest. Negative pages are clamped to 0 and sizes
// below 1 are clamped to 1.
func Of(page, size int, sort Sort) *PageRequest {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 1
	}
	return &PageRequest{page: page, size: size, sort: sort}
}

// OfSize constructs an unsorted PageRequest.
func OfSize(page, size int) *PageRequest {
	return Of(page, size, Unsorted())
}

func (p *PageRequest) GetPage() int { return p.page }

func (p *PageRequest) GetPageSize() int { return p.size }

func (p *PageRequest) GetOffset() int { return p.page * p.size }

func (p *PageRequest) GetSort() Sort { return p.sort }

func (p *PageRequest) Next() *PageRequest { return Of(p.page+1, p.size, p.sort) }

func (p *PageRequest) Previous() *PageRequest {
	if p.page == 0 {
		return p
	}
	return Of(p.page-1, p.size, p.sort)
}

func (p *PageRequest) First() *PageRequest { return Of(0, p.size, p.sort) }

func (p *PageRequest) HasPrevious() bool { return p.page > 0 }

// WithSort returns a copy of the request ordered by sort.
func (p *PageRequest) WithSort(sort Sort) *PageRequest { return Of(p.page, p.size, sort) }

// Page is a chunk of content plus the total-count metadata of the query.
type Page[T any] struct {
	content []*T
	request *PageRequest
	total   int64
}

// NewPage builds a page. total is the number of rows matching the query.
func NewPage[T any](content []*T, request *PageRequest, total int64) *Page[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Page[T]{content: content, request: request, total: total}
}

// ResolveTotal returns the total without a count query when the fetched
// content already proves it, otherwise it calls count.
func ResolveTotal(request *PageRequest, fetched int, count func() (int64, error)) (int64, error) {
	offset := int64(request.GetOffset())
	if offset == 0 && fetched < request.GetPageSize() {
		return int64(fetched), nil
	}
	if fetched > 0 && fetched < request.GetPageSize() {
		return offset + int64(fetched), nil
	}
	return count()
}

func (p *Page[T]) GetContent() []*T { return p.content }

func (p *Page[T]) GetNumber() int { return p.request.GetPage() }

func (p *Page[T]) GetSize() int { return p.request.GetPageSize() }

func (p *Page[T]) GetSort() Sort { return p.request.GetSort() }

func (p *Page[T]) GetNumberOfElements() int { return len(p.content) }

func (p *Page[T]) GetTotalElements() int64 { return p.total }

func (p *Page[T]) GetTotalPages() int {
	size := int64(p.GetSize())
	if size == 0 {
		return 1
	}
	return int((p.total + size - 1) / size)
}

func (p *Page[T]) HasContent() bool { return len(p.content) > 0 }

func (p *Page[T]) HasNext() bool { return p.GetNumber()+1 < p.GetTotalPages() }

func (p *Page[T]) HasPrevious() bool { return p.GetNumber() > 0 }

func (p *Page[T]) IsFirst() bool { return !p.HasPrevious() }

func (p *Page[T]) IsLast() bool { return !p.HasNext() }

func (p *Page[T]) NextPageable() *PageRequest {
	if !p.HasNext() {
		return nil
	}
	return p.request.Next()
}

// MapPage converts the content of a page, keeping its metadata.
func MapPage[T any, R any](page *Page[T], fn func(*T) *R) *Page[R] {
	mapped := make([]*R, 0, len(page.content))
	for _, item := range page.content {
		mapped = append(mapped, fn(item))
	}
	return NewPage[R](mapped, page.request, page.total)
}

// Slice is a chunk of content that only knows whether a next chunk exists.
// It is fetched with size+1 rows and no count query.
type Slice[T any] struct {
	content []*T
	request *PageRequest
	hasNext bool
}

// NewSlice trims an over-fetched result (size+1 rows) into a Slice.
func NewSlice[T any](fetched []*T, request *PageRequest) *Slice[T] {
	hasNext := len(fetched) > request.GetPageSize()
	if hasNext {
		fetched = fetched[:request.GetPageSize()]
	}
	if fetched == nil {
		fetched = make([]*T, 0)
	}
	return &Slice[T]{content: fetched, request: request, hasNext: hasNext}
}

func (s *Slice[T]) GetContent() []*T { return s.content }

func (s *Slice[T]) GetNumber() int { return s.request.GetPage() }

func (s *Slice[T]) GetSize() int { return s.request.GetPageSize() }

func (s *Slice[T]) HasNext() bool { return s.hasNext }

func (s *Slice[T]) IsFirst() bool { return s.request.GetPage() == 0 }

func (s *Slice[T]) IsLast() bool { return !s.hasNext }

type pageJSON[T any] struct {
	Content          []*T  `json:"content"`
	Number           int   `json:"number"`
	Size             int   `json:"size"`
	NumberOfElements int   `json:"numberOfElements"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
	Sort             Sort  `json:"sort"`
}

func (p *Page[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(pageJSON[T]{
		Content:          p.content,
		Number:           p.GetNumber(),
		Size:             p.GetSize(),
		NumberOfElements: p.GetNumberOfElements(),
		TotalElements:    p.total,
		TotalPages:       p.GetTotalPages(),
		First:            p.IsFirst(),
		Last:             p.IsLast(),
		Empty:            !p.HasContent(),
		Sort:             p.GetSort(),
	})
}
