package apitest

import "net/http/httptest"

// Server is a Backend listening on a local httptest server.
type Server struct {
	*Backend
	URL string
	srv *httptest.Server
}

// Start launches a Backend on a loopback port.
func Start(opts Options) (*Server, error) {
	b, err := New(opts)
	if err != nil {
		return nil, err
	}
	srv := httptest.NewServer(b)
	return &Server{Backend: b, URL: srv.URL, srv: srv}, nil
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}
