// Package repository provides generic bun repositories whose reads and
// writes join the unit of work carried by the context, plus the member and
// team repositories with their derived, paged, projected and locking queries.
package repository
