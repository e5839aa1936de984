// Package lsp serves a grammar over the Language Server Protocol. Every open
// document is parsed incrementally; the server publishes its syntax errors as
// diagnostics and completes from the symbols the parser expects.
package lsp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nihei9/sesd/driver"
	"github.com/nihei9/sesd/spec"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const lsName = "sesd"

type Option func(s *Server) error

func Version(version string) Option {
	return func(s *Server) error {
		s.version = version
		return nil
	}
}

func Logger(logger commonlog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("the logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// SessionOptions are applied to the session of every document after the
// options of the language.
func SessionOptions(opts ...driver.Option) Option {
	return func(s *Server) error {
		s.sessionOpts = append(s.sessionOpts, opts...)
		return nil
	}
}

type Server struct {
	lang        *spec.Language
	handler     protocol.Handler
	server      *server.Server
	version     string
	logger      commonlog.Logger
	sessionOpts []driver.Option

	mu   sync.Mutex
	docs map[protocol.DocumentUri]*lockedDocument
}

type lockedDocument struct {
	mu  sync.Mutex
	doc *document
}

func New(lang *spec.Language, opts ...Option) (*Server, error) {
	if lang == nil {
		return nil, errors.New("a language server needs a language")
	}
	s := &Server{
		lang:    lang,
		version: "dev",
		logger:  commonlog.GetLogger("sesd.lsp"),
		docs:    map[protocol.DocumentUri]*lockedDocument{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.handler = protocol.Handler{
		Initialize:             s.initialize,
		Initialized:            s.initialized,
		Shutdown:               s.shutdown,
		SetTrace:               s.setTrace,
		TextDocumentDidOpen:    s.textDocumentDidOpen,
		TextDocumentDidChange:  s.textDocumentDidChange,
		TextDocumentDidClose:   s.textDocumentDidClose,
		TextDocumentCompletion: s.textDocumentCompletion,
	}
	s.server = server.NewServer(&s.handler, lsName, false)

	return s, nil
}

func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	change := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &change,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	s.logger.Infof("serving %v", s.lang.Name)
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc, err := newDocument(s.lang, s.logger, s.sessionOpts...)
	if err != nil {
		return err
	}
	ld := &lockedDocument{
		doc: doc,
	}
	ld.mu.Lock()
	defer ld.mu.Unlock()

	s.mu.Lock()
	s.docs[params.TextDocument.URI] = ld
	s.mu.Unlock()

	if err := doc.update(params.TextDocument.Text); err != nil {
		s.logger.Errorf("%v: %v", params.TextDocument.URI, err)
		return err
	}
	s.publish(ctx, params.TextDocument.URI, doc)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	ld, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return fmt.Errorf("unknown document: %v", params.TextDocument.URI)
	}
	ld.mu.Lock()
	defer ld.mu.Unlock()

	text := ld.doc.text
	for _, change := range params.ContentChanges {
		var err error
		text, err = applyChange(text, change)
		if err != nil {
			return err
		}
	}
	if err := ld.doc.update(text); err != nil {
		s.logger.Errorf("%v: %v", params.TextDocument.URI, err)
		return err
	}
	s.publish(ctx, params.TextDocument.URI, ld.doc)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	ld, ok := s.lookup(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	ld.mu.Lock()
	defer ld.mu.Unlock()

	items := ld.doc.completions(params.Position)
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func (s *Server) lookup(uri protocol.DocumentUri) (*lockedDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ld, ok := s.docs[uri]
	return ld, ok
}

func (s *Server) publish(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: doc.diagnostics(),
	})
}

func boolPtr(b bool) *bool {
	return &b
}
