package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.uber.org/zap"

	"github.com/kokukuma/pex-verifier/document"
	"github.com/kokukuma/pex-verifier/pex"
)

var logger = log.New("pex-server")

type Server struct {
	engine      *pex.Engine
	definitions *Definitions
}

type ServerOption func(*Server)

func WithEngine(e *pex.Engine) ServerOption {
	return func(s *Server) {
		s.engine = e
	}
}

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		engine:      pex.New(),
		definitions: NewDefinitions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefinitionRequest refers to a registered definition by id or carries one inline.
type DefinitionRequest struct {
	DefinitionID           string                           `json:"definition_id,omitempty"`
	PresentationDefinition *document.PresentationDefinition `json:"presentation_definition,omitempty"`
}

type CredentialsRequest struct {
	DefinitionRequest
	Credentials []string `json:"credentials"`
}

type MatchRequest struct {
	DefinitionRequest
	Presentation *document.Presentation `json:"presentation"`
}

type RegisterDefinitionResponse struct {
	ID     string          `json:"id"`
	Report []pex.Checkmark `json:"report"`
}

type SelectCredentialsResponse struct {
	Credentials []string `json:"credentials"`
}

type SatisfiesDefinitionResponse struct {
	Satisfied   bool     `json:"satisfied"`
	Unsatisfied []string `json:"unsatisfied,omitempty"`
}

type ReportResponse struct {
	Report []pex.Checkmark `json:"report"`
}

type MatchedCredential struct {
	ID           string                 `json:"id,omitempty"`
	Types        []string               `json:"type"`
	Issuer       string                 `json:"issuer,omitempty"`
	IssuanceDate string                 `json:"issuanceDate,omitempty"`
	Subject      map[string]interface{} `json:"credentialSubject"`
}

type MatchResponse struct {
	Matches map[string]MatchedCredential `json:"matches"`
}

// Routes registers the handlers on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/definitions", s.RegisterDefinition).Methods("POST", "OPTIONS")
	r.HandleFunc("/definitions/{id}", s.GetDefinition).Methods("GET", "OPTIONS")

	r.HandleFunc("/selectCredentials", s.SelectCredentials).Methods("POST", "OPTIONS")
	r.HandleFunc("/satisfiesDefinition", s.SatisfiesDefinition).Methods("POST", "OPTIONS")
	r.HandleFunc("/createPresentation", s.CreatePresentation).Methods("POST", "OPTIONS")
	r.HandleFunc("/matchPresentation", s.MatchPresentation).Methods("POST", "OPTIONS")

	r.HandleFunc("/validateSubmission", s.ValidateSubmission).Methods("POST", "OPTIONS")
	r.HandleFunc("/validateDefinition", s.ValidateDefinition).Methods("POST", "OPTIONS")
}

func (s *Server) RegisterDefinition(w http.ResponseWriter, r *http.Request) {
	pd := &document.PresentationDefinition{}
	if err := parseJSON(r, pd); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	AssignID(pd)

	report := pex.ValidateDefinition(pd)
	if pex.HasErrors(report) {
		writeResponse(w, r, ReportResponse{Report: report}, http.StatusBadRequest)
		return
	}

	id := s.definitions.Save(pd)
	logger.Info("presentation definition registered", zap.String("id", id),
		zap.Int("descriptors", len(pd.InputDescriptors)))

	writeResponse(w, r, RegisterDefinitionResponse{ID: id, Report: report}, http.StatusCreated)
}

func (s *Server) GetDefinition(w http.ResponseWriter, r *http.Request) {
	pd, err := s.definitions.Get(mux.Vars(r)["id"])
	if err != nil {
		errorResponse(w, r, err, http.StatusNotFound)
		return
	}
	writeResponse(w, r, pd, http.StatusOK)
}

func (s *Server) SelectCredentials(w http.ResponseWriter, r *http.Request) {
	req := CredentialsRequest{}
	if err := parseJSON(r, &req); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	pd, err := s.definition(req.DefinitionRequest)
	if err != nil {
		errorResponse(w, r, err, definitionStatus(err))
		return
	}

	selected, err := s.engine.SelectCredentials(pd, req.Credentials)
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	writeResponse(w, r, SelectCredentialsResponse{Credentials: selected}, http.StatusOK)
}

func (s *Server) SatisfiesDefinition(w http.ResponseWriter, r *http.Request) {
	req := CredentialsRequest{}
	if err := parseJSON(r, &req); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	pd, err := s.definition(req.DefinitionRequest)
	if err != nil {
		errorResponse(w, r, err, definitionStatus(err))
		return
	}

	err = s.engine.SatisfiesPresentationDefinition(pd, req.Credentials)
	if ids, ok := pex.IsUnsatisfied(err); ok {
		writeResponse(w, r, SatisfiesDefinitionResponse{Unsatisfied: ids}, http.StatusOK)
		return
	}
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	writeResponse(w, r, SatisfiesDefinitionResponse{Satisfied: true}, http.StatusOK)
}

func (s *Server) CreatePresentation(w http.ResponseWriter, r *http.Request) {
	req := CredentialsRequest{}
	if err := parseJSON(r, &req); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	pd, err := s.definition(req.DefinitionRequest)
	if err != nil {
		errorResponse(w, r, err, definitionStatus(err))
		return
	}

	result, err := s.engine.CreatePresentationFromCredentials(pd, req.Credentials)
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	writeResponse(w, r, result, http.StatusOK)
}

func (s *Server) MatchPresentation(w http.ResponseWriter, r *http.Request) {
	req := MatchRequest{}
	if err := parseJSON(r, &req); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	pd, err := s.definition(req.DefinitionRequest)
	if err != nil {
		errorResponse(w, r, err, definitionStatus(err))
		return
	}

	matched, err := s.engine.Match(pd, req.Presentation)
	if err != nil {
		s.engineError(w, r, err)
		return
	}

	resp := MatchResponse{Matches: make(map[string]MatchedCredential, len(matched))}
	for id, cred := range matched {
		resp.Matches[id] = MatchedCredential{
			ID:           cred.ID,
			Types:        cred.Types,
			Issuer:       cred.Issuer,
			IssuanceDate: cred.IssuanceDate,
			Subject:      cred.Subject,
		}
	}

	writeResponse(w, r, resp, http.StatusOK)
}

func (s *Server) ValidateSubmission(w http.ResponseWriter, r *http.Request) {
	sub := &document.PresentationSubmission{}
	if err := parseJSON(r, sub); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	writeResponse(w, r, ReportResponse{Report: pex.ValidateSubmission(sub)}, http.StatusOK)
}

func (s *Server) ValidateDefinition(w http.ResponseWriter, r *http.Request) {
	pd := &document.PresentationDefinition{}
	if err := parseJSON(r, pd); err != nil {
		errorResponse(w, r, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	writeResponse(w, r, ReportResponse{Report: pex.ValidateDefinition(pd)}, http.StatusOK)
}

var errNoDefinition = errors.New("either definition_id or presentation_definition is required")

// definition resolves the definition a request refers to. An inline definition
// wins over definition_id.
func (s *Server) definition(req DefinitionRequest) (*document.PresentationDefinition, error) {
	if req.PresentationDefinition != nil {
		return req.PresentationDefinition, nil
	}
	if req.DefinitionID == "" {
		return nil, errNoDefinition
	}
	return s.definitions.Get(req.DefinitionID)
}

func definitionStatus(err error) int {
	if errors.Is(err, ErrDefinitionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) engineError(w http.ResponseWriter, r *http.Request, err error) {
	if ids, ok := pex.IsUnsatisfied(err); ok {
		logger.Info("presentation definition not satisfied", zap.Strings("unsatisfied", ids))
		writeResponse(w, r, ErrorResponse{Error: err.Error(), Unsatisfied: ids}, http.StatusUnprocessableEntity)
		return
	}
	errorResponse(w, r, err, http.StatusBadRequest)
}
