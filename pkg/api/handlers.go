package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-uaspace/pkg/api/middleware"
	"github.com/dd0wney/cluso-uaspace/pkg/bootstrap"
	"github.com/dd0wney/cluso-uaspace/pkg/browse"
	"github.com/dd0wney/cluso-uaspace/pkg/history"
	"github.com/dd0wney/cluso-uaspace/pkg/logging"
	"github.com/dd0wney/cluso-uaspace/pkg/ua"
)

type servicesHandler func(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services)

// withServices answers 503 until the address space is published.
func (s *Server) withServices(h servicesHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := s.rt.Services()
		if svc == nil {
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusServiceUnavailable, "address space not ready")
			return
		}
		h(w, r, svc)
	}
}

func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
	s.respondJSON(w, http.StatusOK, svc.Space.Namespaces())
}

func (s *Server) pathNodeID(w http.ResponseWriter, r *http.Request) (ua.NodeID, bool) {
	id, err := ua.ParseNodeID(r.PathValue("nodeId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return ua.NodeID{}, false
	}
	return id, true
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
	id, ok := s.pathNodeID(w, r)
	if !ok {
		return
	}
	n, ok := svc.Space.Node(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, ua.StatusBadNodeIDUnknown.String())
		return
	}
	s.respondJSON(w, http.StatusOK, n)
}

// handleNodeReferences returns every reference of a node, both directions,
// without filtering. Dangling targets are already dropped by the space.
func (s *Server) handleNodeReferences(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
	id, ok := s.pathNodeID(w, r)
	if !ok {
		return
	}
	if _, ok := svc.Space.Node(id); !ok {
		s.respondError(w, http.StatusNotFound, ua.StatusBadNodeIDUnknown.String())
		return
	}
	refs, err := svc.Space.BrowseNode(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	if refs == nil {
		refs = []ua.ReferenceDescription{}
	}
	s.respondJSON(w, http.StatusOK, refs)
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
	var req browse.Request
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.respondJSON(w, http.StatusOK, svc.Browse.Browse(r.Context(), &req))
}

// ServiceResponse is the body of services answered by status code alone.
type ServiceResponse struct {
	ServiceResult ua.StatusCode `json:"serviceResult"`
}

// TranslateRequest carries the browse paths to translate.
type TranslateRequest struct {
	BrowsePaths []browse.BrowsePath `json:"browsePaths"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
	var req TranslateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	status := svc.Browse.TranslateBrowsePaths(r.Context(), req.BrowsePaths)
	s.respondJSON(w, http.StatusUnprocessableEntity, ServiceResponse{ServiceResult: status})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
	var req history.ReadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.EndTime.IsZero() {
		req.EndTime = time.Now().UTC()
	}
	if req.StartTime.IsZero() {
		req.StartTime = req.EndTime.Add(-time.Hour)
	}
	s.respondJSON(w, http.StatusOK, svc.History.Read(r.Context(), &req))
}

// unsupported answers 501 with the status code of call, one of the
// browse.Service methods for services this server does not implement.
func (s *Server) unsupported(call func(*browse.Service, context.Context) ua.StatusCode) servicesHandler {
	return func(w http.ResponseWriter, r *http.Request, svc *bootstrap.Services) {
		status := call(svc.Browse, r.Context())
		s.respondJSON(w, http.StatusNotImplemented, ServiceResponse{ServiceResult: status})
	}
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "no identity")
		return
	}
	s.respondJSON(w, http.StatusOK, id)
}

// TokenResponse is returned by POST /v1/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// handleToken issues a token for the caller. Only identities from the user
// store qualify; a token cannot be exchanged for a fresh one.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if _, _, basic := r.BasicAuth(); !basic {
		s.respondError(w, http.StatusUnauthorized, "basic credentials required")
		return
	}
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "no identity")
		return
	}
	token, err := s.rt.Tokens().Issue(id)
	if err != nil {
		s.logger.Error("issuing token failed", logging.String("username", id.Username), logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	s.respondJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresIn: int(s.rt.Tokens().Duration().Seconds()),
	})
}
