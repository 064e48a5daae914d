package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/modelab/moded/logger"
	"github.com/modelab/moded/mode"
	"github.com/modelab/moded/policy"
	"github.com/modelab/moded/session"
)

// requestHandler handles one request method and returns its result value.
type requestHandler func(params json.RawMessage) (any, error)

// notificationHandler handles one notification method. Errors are logged,
// never answered.
type notificationHandler func(params json.RawMessage) error

// Server reads newline-delimited JSON-RPC frames from one stream, routes
// them to handlers, and writes one response frame per request (and none
// per notification). The dispatch tables are fixed at construction.
type Server struct {
	reader *bufio.Reader
	writer io.Writer

	requests      map[string]requestHandler
	notifications map[string]notificationHandler

	resources *ResourceHandler
	tools     *ToolHandler

	writeMu sync.Mutex
	log     *slog.Logger
}

// NewServer creates a server over the given streams and core components.
func NewServer(r io.Reader, w io.Writer, registry *mode.Registry, sessions *session.Manager, engine *policy.Engine) *Server {
	s := &Server{
		reader:    bufio.NewReader(r),
		writer:    w,
		resources: NewResourceHandler(registry),
		tools:     NewToolHandler(registry, sessions, engine),
		log:       logger.WithComponent("mcp"),
	}
	s.requests = map[string]requestHandler{
		"initialize":     s.handleInitialize,
		"resources/list": s.handleResourcesList,
		"resources/read": s.handleResourcesRead,
		"tools/list":     s.handleToolsList,
		"tools/call":     s.handleToolsCall,
	}
	s.notifications = map[string]notificationHandler{
		"notifications/initialized": s.handleInitialized,
		"cancelled":                 s.handleCancelled,
	}
	return s
}

// Run processes frames until the input stream closes. EOF is a clean
// shutdown. Handler errors never stop the loop.
func (s *Server) Run() error {
	s.log.Info("server started")

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Info("input closed, shutting down")
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		s.handleLine([]byte(line))
	}
}

// handleLine processes one raw frame: framing and envelope checks here,
// everything else in the dispatch tables. Blank lines are skipped.
func (s *Server) handleLine(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	req, perr := Parse(line)
	if perr != nil {
		s.sendError(nil, perr)
		return
	}
	if verr := req.Validate(); verr != nil {
		s.sendError(req.ID, verr)
		return
	}

	if req.IsNotification() {
		s.dispatchNotification(req)
		return
	}
	s.dispatchRequest(req)
}

func (s *Server) dispatchRequest(req *Request) {
	handler, ok := s.requests[req.Method]
	if !ok {
		s.sendError(req.ID, &Error{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		})
		return
	}

	result, err := handler(req.Params)
	if err != nil {
		s.sendError(req.ID, toWireError(err))
		return
	}
	s.sendResult(req.ID, result)
}

func (s *Server) dispatchNotification(req *Request) {
	handler, ok := s.notifications[req.Method]
	if !ok {
		s.log.Debug("ignoring unknown notification", "method", req.Method)
		return
	}
	if err := handler(req.Params); err != nil {
		s.log.Warn("notification handler failed", "method", req.Method, "error", err)
	}
}

// toWireError maps a handler error to the error frame it becomes.
// Protocol-family errors keep their code, validation failures become
// VALIDATION_ERROR, and anything else is INTERNAL_ERROR with the
// underlying message as data.
func toWireError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return &Error{Code: CodeValidationError, Message: verr.Reason, Data: verr.Data}
	}
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: err.Error()}
}

func (s *Server) handleInitialize(params json.RawMessage) (any, error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
		}
	}
	s.log.Info("initialize",
		"clientName", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"clientProtocol", p.ProtocolVersion)

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capabilities{
			Resources: &ResourcesCapability{ListChanged: false},
			Tools:     &ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{Name: ServerName, Version: ServerVersion},
	}, nil
}

func (s *Server) handleResourcesList(json.RawMessage) (any, error) {
	return ListResourcesResult{Resources: s.resources.List()}, nil
}

func (s *Server) handleResourcesRead(params json.RawMessage) (any, error) {
	var p ReadResourceParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
		}
	}
	if p.URI == "" {
		return nil, Validationf("missing required parameter %q", "uri")
	}

	content, err := s.resources.Read(p.URI)
	if err != nil {
		return nil, err
	}
	return ReadResourceResult{Contents: []ResourceContent{content}}, nil
}

func (s *Server) handleToolsList(json.RawMessage) (any, error) {
	return ListToolsResult{Tools: s.tools.Definitions()}, nil
}

func (s *Server) handleToolsCall(params json.RawMessage) (any, error) {
	var p ToolCallParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
		}
	}
	if p.Name == "" {
		return nil, Validationf("missing required parameter %q", "name")
	}

	return s.tools.Call(p.Name, p.Arguments)
}

func (s *Server) handleInitialized(json.RawMessage) error {
	s.log.Info("client initialized")
	return nil
}

// handleCancelled acknowledges a cancellation in the log only. Requests
// are handled to completion before the next frame is read, so by the
// time a cancellation arrives the request it names has already been
// answered.
func (s *Server) handleCancelled(params json.RawMessage) error {
	var p CancelledParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return fmt.Errorf("decoding cancelled params: %w", err)
		}
	}
	s.log.Info("request cancelled by client", "requestId", string(p.RequestID), "reason", p.Reason)
	return nil
}

// sendResult writes a success frame.
func (s *Server) sendResult(id json.RawMessage, result any) {
	s.send(&Response{JSONRPC: "2.0", ID: id, Result: result})
}

// sendError writes an error frame. A nil id (framing failure before the
// id was known) goes out as null.
func (s *Server) sendError(id json.RawMessage, e *Error) {
	if id == nil {
		id = json.RawMessage("null")
	}
	s.send(&Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: e.Code, Message: e.Message, Data: e.Data},
	})
}

func (s *Server) send(resp *Response) {
	data, err := Serialize(resp)
	if err != nil {
		s.log.Error("failed to serialize response", "error", err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(data); err != nil {
		s.log.Error("failed to write response", "error", err)
	}
}
