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

package repository

import "errors"

var (
	// ErrNotFound is returned by lookups that require a row.
	ErrNotFound = errors.New("entity not found")
	// ErrNonUniqueResult is returned by single-result queries matching more than one row.
	ErrNonUniqueResult = errors.New("query did not return a unique result")
	// ErrTransactionRequired is returned by locking queries outside a unit of work.
	ErrTransactionRequired = errors.New("no transaction is in progress")
	// ErrDuplicateKey wraps unique constraint violations on insert.
	ErrDuplicateKey = errors.New("duplicate key")
)
