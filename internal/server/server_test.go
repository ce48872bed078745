package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokukuma/pex-verifier/credential_data"
	"github.com/kokukuma/pex-verifier/document"
	"github.com/kokukuma/pex-verifier/pex"
)

type testEnv struct {
	srv        *httptest.Server
	employment string
	nameAndDob string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := mux.NewRouter()
	NewServer().Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	issuer, err := credential_data.NewIssuer("did:example:bank")
	require.NoError(t, err)
	tokens, err := credential_data.LoanApplicationSubjects().Issue(issuer, "did:example:alice")
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	return &testEnv{srv: srv, employment: tokens[0], nameAndDob: tokens[1]}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, accept string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) register(t *testing.T) string {
	t.Helper()

	resp, raw := e.do(t, http.MethodPost, "/definitions", credential_data.LoanApplicationDefinition(), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var registered RegisterDefinitionResponse
	require.NoError(t, json.Unmarshal(raw, &registered))
	return registered.ID
}

func TestDefinitions(t *testing.T) {
	env := newTestEnv(t)

	id := env.register(t)
	assert.Equal(t, credential_data.LoanApplicationDefinitionID, id)

	resp, raw := env.do(t, http.MethodGet, "/definitions/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var pd document.PresentationDefinition
	require.NoError(t, json.Unmarshal(raw, &pd))
	assert.Equal(t, credential_data.LoanApplicationDefinition(), &pd)

	resp, _ = env.do(t, http.MethodGet, "/definitions/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterDefinition_Invalid(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/definitions", map[string]interface{}{
		"id":                "broken",
		"input_descriptors": []interface{}{},
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var report ReportResponse
	require.NoError(t, json.Unmarshal(raw, &report))
	require.NotEmpty(t, report.Report)
	assert.True(t, pex.HasErrors(report.Report))
}

func TestSelectCredentials(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t)

	tests := []struct {
		name            string
		body            CredentialsRequest
		wantStatus      int
		wantCredentials []string
		wantUnsatisfied []string
	}{
		{
			name: "registered definition",
			body: CredentialsRequest{
				DefinitionRequest: DefinitionRequest{DefinitionID: id},
				Credentials:       []string{env.nameAndDob, env.employment},
			},
			wantStatus:      http.StatusOK,
			wantCredentials: []string{env.employment, env.nameAndDob},
		},
		{
			name: "inline definition",
			body: CredentialsRequest{
				DefinitionRequest: DefinitionRequest{
					PresentationDefinition: credential_data.LoanApplicationDefinition(),
				},
				Credentials: []string{env.employment, env.nameAndDob},
			},
			wantStatus:      http.StatusOK,
			wantCredentials: []string{env.employment, env.nameAndDob},
		},
		{
			name: "unsatisfied",
			body: CredentialsRequest{
				DefinitionRequest: DefinitionRequest{DefinitionID: id},
				Credentials:       []string{env.employment},
			},
			wantStatus:      http.StatusUnprocessableEntity,
			wantUnsatisfied: []string{credential_data.DobVerification, credential_data.NameVerification},
		},
		{
			name:       "no definition",
			body:       CredentialsRequest{Credentials: []string{env.employment}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown definition",
			body: CredentialsRequest{
				DefinitionRequest: DefinitionRequest{DefinitionID: "unknown"},
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.do(t, http.MethodPost, "/selectCredentials", tt.body, "")
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(raw))

			if tt.wantStatus == http.StatusOK {
				var selected SelectCredentialsResponse
				require.NoError(t, json.Unmarshal(raw, &selected))
				assert.Equal(t, tt.wantCredentials, selected.Credentials)
				return
			}

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &errResp))
			assert.NotEmpty(t, errResp.Error)
			assert.Equal(t, tt.wantUnsatisfied, errResp.Unsatisfied)
		})
	}
}

func TestSelectCredentials_CBOR(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.do(t, http.MethodPost, "/selectCredentials", CredentialsRequest{
		DefinitionRequest: DefinitionRequest{PresentationDefinition: credential_data.LoanApplicationDefinition()},
		Credentials:       []string{env.employment, env.nameAndDob},
	}, "application/cbor")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/cbor", resp.Header.Get("Content-Type"))

	var selected SelectCredentialsResponse
	require.NoError(t, cbor.Unmarshal(raw, &selected))
	assert.Equal(t, []string{env.employment, env.nameAndDob}, selected.Credentials)
}

func TestSatisfiesDefinition(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t)

	tests := []struct {
		name        string
		credentials []string
		want        SatisfiesDefinitionResponse
	}{
		{
			name:        "satisfied",
			credentials: []string{env.employment, env.nameAndDob},
			want:        SatisfiesDefinitionResponse{Satisfied: true},
		},
		{
			name:        "identity only",
			credentials: []string{env.nameAndDob},
			want:        SatisfiesDefinitionResponse{Unsatisfied: []string{credential_data.EmploymentVerification}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.do(t, http.MethodPost, "/satisfiesDefinition", CredentialsRequest{
				DefinitionRequest: DefinitionRequest{DefinitionID: id},
				Credentials:       tt.credentials,
			}, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var got SatisfiesDefinitionResponse
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPresentationRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t)

	resp, raw := env.do(t, http.MethodPost, "/createPresentation", CredentialsRequest{
		DefinitionRequest: DefinitionRequest{DefinitionID: id},
		Credentials:       []string{env.employment, env.nameAndDob},
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var result pex.PresentationResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.NotNil(t, result.Presentation)
	assert.Equal(t, []string{env.employment, env.nameAndDob}, result.Presentation.VerifiableCredential)
	require.Len(t, result.PresentationSubmission.DescriptorMap, 3)

	resp, raw = env.do(t, http.MethodPost, "/validateSubmission", result.PresentationSubmission, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report ReportResponse
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, []pex.Checkmark{{Tag: "root", Status: pex.StatusInfo, Message: "ok"}}, report.Report)

	resp, raw = env.do(t, http.MethodPost, "/matchPresentation", MatchRequest{
		DefinitionRequest: DefinitionRequest{DefinitionID: id},
		Presentation:      result.Presentation,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var matched MatchResponse
	require.NoError(t, json.Unmarshal(raw, &matched))
	require.Len(t, matched.Matches, 3)
	assert.Equal(t, "alice bob", matched.Matches[credential_data.NameVerification].Subject["name"])
	assert.Equal(t, "did:example:bank", matched.Matches[credential_data.EmploymentVerification].Issuer)
}

func TestValidateDefinition(t *testing.T) {
	env := newTestEnv(t)

	pd := credential_data.LoanApplicationDefinition()
	pd.InputDescriptors[0].Constraints.Fields[0].Path = []string{"credentialSubject"}

	resp, raw := env.do(t, http.MethodPost, "/validateDefinition", pd, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report ReportResponse
	require.NoError(t, json.Unmarshal(raw, &report))
	require.Len(t, report.Report, 2)
	assert.Equal(t, pex.StatusError, report.Report[1].Status)
	assert.Contains(t, report.Report[1].Message, "input_descriptors[0].constraints.fields[0].path[0]")
}

func TestBadRequest(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/selectCredentials", bytes.NewBufferString("{"))
	require.NoError(t, err)

	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDefinitions_Save(t *testing.T) {
	defs := NewDefinitions()

	pd := &document.PresentationDefinition{}
	AssignID(pd)
	require.NotEmpty(t, pd.ID)

	id := defs.Save(pd)
	assert.Equal(t, pd.ID, id)

	got, err := defs.Get(id)
	require.NoError(t, err)
	assert.Same(t, pd, got)
	assert.Equal(t, 1, defs.Len())

	_, err = defs.Get("missing")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)

	kept := &document.PresentationDefinition{ID: "kept"}
	AssignID(kept)
	assert.Equal(t, "kept", kept.ID)
}

func TestRegisterDefinition_WithoutID(t *testing.T) {
	env := newTestEnv(t)

	pd := credential_data.LoanApplicationDefinition()
	pd.ID = ""

	resp, raw := env.do(t, http.MethodPost, "/definitions", pd, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var registered RegisterDefinitionResponse
	require.NoError(t, json.Unmarshal(raw, &registered))
	require.NotEmpty(t, registered.ID)
	assert.False(t, pex.HasErrors(registered.Report))

	resp, raw = env.do(t, http.MethodPost, "/selectCredentials", CredentialsRequest{
		DefinitionRequest: DefinitionRequest{DefinitionID: registered.ID},
		Credentials:       []string{env.employment, env.nameAndDob},
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}
