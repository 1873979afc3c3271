// Package mcp serves conversation memory search over the Model Context
// Protocol (github.com/modelcontextprotocol/go-sdk/mcp).
//
// Tools:
//   - search_memory: ranked chunks for a query, as a numbered text list
//   - list_collections: collection names with point counts
//
// Tool failures are returned as error text in the tool result and never as
// protocol errors.
package mcp
