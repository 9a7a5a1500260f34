// SPDX-License-Identifier: MPL-2.0

// Package issue provides error types that carry operator-facing context:
// what operation failed, which file or URL was involved, and concrete
// suggestions for manual recovery (this tool has no automatic retry).
package issue
