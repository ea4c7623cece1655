package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sqlgate/sqlgate/internal/gateway"
	"github.com/sqlgate/sqlgate/internal/logging"
)

// Server speaks JSON-RPC 2.0 over stdio, one message per line.
type Server struct {
	gw  *gateway.Gateway
	log *logging.Logger

	in  io.Reader
	out io.Writer

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires the transport to a gateway. Reads stdin, writes stdout.
func NewServer(ctx context.Context, gw *gateway.Gateway, log *logging.Logger) *Server {
	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		gw:     gw,
		log:    log,
		in:     os.Stdin,
		out:    os.Stdout,
		ctx:    serverCtx,
		cancel: cancel,
	}
}

// Run processes messages until EOF or shutdown.
func (s *Server) Run() error {
	reader := bufio.NewReader(s.in)

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		response := s.handleMessage([]byte(line))
		if response == nil {
			continue
		}
		responseBytes, err := json.Marshal(response)
		if err != nil {
			s.log.Errorf("marshal response: %v", err)
			continue
		}
		fmt.Fprintln(s.out, string(responseBytes))
	}
}

func (s *Server) handleMessage(data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &Error{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}
	}

	return s.handleRequest(&req)
}

func (s *Server) handleRequest(req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var err *Error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized":
		// Notification, no response.
		return nil
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(req.Params)
	case "resources/list":
		result, err = s.handleListResources()
	case "resources/read":
		result, err = s.handleReadResource(req.Params)
	case "ping":
		result = map[string]any{}
	default:
		err = &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   err,
	}
}

// Shutdown stops the read loop.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}
