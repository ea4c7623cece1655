package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlgate/sqlgate/internal/gateway"
)

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}, nil
}

func (s *Server) handleListTools() (*ListToolsResult, *Error) {
	return &ListToolsResult{
		Tools: []Tool{
			{
				Name:        "list_tables",
				Description: "List the tables of the connected database in stable order",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]Property{},
				},
			},
			{
				Name:        "describe_table",
				Description: "Describe a table: columns with declared type and nullability, in declaration order",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"table": {
							Type:        "string",
							Description: "Name of the table to describe",
						},
					},
					Required: []string{"table"},
				},
			},
			{
				Name:        "execute_query",
				Description: "Execute a SQL statement under the gateway policy. Mutations require read-write mode; schema changes require admin mode.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": {
							Type:        "string",
							Description: "The SQL statement to execute (single statement only)",
						},
						"params": {
							Type:        "array",
							Description: "Optional bound parameters, matched against the statement's placeholders",
							Items:       &Property{Type: "string"},
						},
						"intent": {
							Type:        "string",
							Description: "Optional execution intent hint: 'read' or 'write'",
						},
					},
					Required: []string{"sql"},
				},
			},
		},
	}, nil
}

func (s *Server) handleCallTool(params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	switch callParams.Name {
	case "list_tables":
		return s.listTables()
	case "describe_table":
		return s.describeTable(callParams.Arguments)
	case "execute_query":
		return s.executeQuery(callParams.Arguments)
	default:
		return nil, &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Unknown tool: %s", callParams.Name),
		}
	}
}

func (s *Server) listTables() (*CallToolResult, *Error) {
	tables, err := s.gw.ListTables(s.ctx)
	if err != nil {
		return errorResult("Failed to list tables: %v", err), nil
	}
	if tables == nil {
		tables = []string{}
	}
	return jsonResult(tables)
}

func (s *Server) describeTable(args map[string]any) (*CallToolResult, *Error) {
	table, ok := args["table"].(string)
	if !ok || table == "" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Missing or invalid 'table' parameter",
		}
	}

	desc, err := s.gw.DescribeTable(s.ctx, table)
	if err != nil {
		return errorResult("Failed to describe table: %v", err), nil
	}
	return jsonResult(desc)
}

func (s *Server) executeQuery(args map[string]any) (*CallToolResult, *Error) {
	sqlText, ok := args["sql"].(string)
	if !ok {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Missing or invalid 'sql' parameter",
		}
	}

	req := gateway.Request{SQL: sqlText}
	if params, ok := args["params"].([]any); ok {
		req.Params = params
	}
	if intent, ok := args["intent"].(string); ok {
		req.Intent = intent
	}

	resp := s.gw.ExecuteQuery(s.ctx, req)

	payload, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errorResult("Failed to marshal response: %v", err), nil
	}
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: string(payload)}},
		IsError: resp.Error != nil,
	}, nil
}

func (s *Server) handleListResources() (*ListResourcesResult, *Error) {
	tables, err := s.gw.ListTables(s.ctx)
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to list tables: %v", err),
		}
	}

	resources := make([]Resource, 0, len(tables))
	scheme := s.gw.Dialect().URIScheme()
	for _, table := range tables {
		resources = append(resources, Resource{
			URI:      fmt.Sprintf("%s://%s/%s/schema", scheme, s.gw.Database(), table),
			Name:     fmt.Sprintf("Schema for table '%s'", table),
			MimeType: "application/json",
		})
	}
	return &ListResourcesResult{Resources: resources}, nil
}

func (s *Server) handleReadResource(params json.RawMessage) (*ReadResourceResult, *Error) {
	var readParams ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	scheme := s.gw.Dialect().URIScheme() + "://"
	uri := readParams.URI
	if !strings.HasPrefix(uri, scheme) {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid resource URI: must start with %s", scheme),
		}
	}

	parts := strings.Split(strings.TrimPrefix(uri, scheme), "/")
	if len(parts) < 3 || parts[2] != "schema" {
		return nil, &Error{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Invalid resource URI format: expected %sdbname/tablename/schema", scheme),
		}
	}

	desc, err := s.gw.DescribeTable(s.ctx, parts[1])
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to read schema: %v", err),
		}
	}

	payload, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to marshal schema: %v", err),
		}
	}

	return &ReadResourceResult{
		Contents: []ResourceContent{
			{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(payload),
			},
		},
	}, nil
}

func jsonResult(v any) (*CallToolResult, *Error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Failed to marshal result: %v", err), nil
	}
	return &CallToolResult{Content: []Content{{Type: "text", Text: string(payload)}}}, nil
}

func errorResult(format string, args ...any) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
