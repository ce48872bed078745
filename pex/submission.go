package pex

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kokukuma/pex-verifier/document"
)

// PresentationResult is the outcome of CreatePresentationFromCredentials.
type PresentationResult struct {
	Presentation           *document.Presentation           `json:"presentation"`
	PresentationSubmission *document.PresentationSubmission `json:"presentationSubmission"`
}

// CreatePresentationFromCredentials selects the credentials satisfying the
// definition and wraps them into a verifiable presentation. Each input descriptor
// is mapped to its first matching credential; a credential satisfying several
// descriptors appears once in the presentation. Under AllMatches the presentation
// also carries every other satisfying credential, in the order SelectCredentials
// returns them. Nothing is returned unless every descriptor is satisfied.
func (e *Engine) CreatePresentationFromCredentials(
	pd *document.PresentationDefinition,
	tokens []string,
) (*PresentationResult, error) {
	ev, err := e.Evaluate(pd, tokens)
	if err != nil {
		return nil, err
	}

	if err := ev.Err(); err != nil {
		return nil, err
	}

	return e.buildPresentation(ev), nil
}

func (e *Engine) buildPresentation(ev *Evaluation) *PresentationResult {
	var (
		credentials = []string{}
		positions   = make(map[string]int)
		mappings    = make([]*document.DescriptorMap, 0, len(ev.Matches))
	)

	include := func(candidate int) int {
		token := ev.Candidates[candidate].Token
		idx, ok := positions[token]
		if !ok {
			idx = len(credentials)
			positions[token] = idx
			credentials = append(credentials, token)
		}
		return idx
	}

	for _, m := range ev.Matches {
		idx := include(m.Candidates[0])
		if e.policy == AllMatches {
			for _, c := range m.Candidates[1:] {
				include(c)
			}
		}

		mappings = append(mappings, &document.DescriptorMap{
			ID:     m.DescriptorID,
			Format: document.FormatJWTVC,
			Path:   credentialPath(idx),
		})
	}

	submission := &document.PresentationSubmission{
		ID:            e.newID(),
		DefinitionID:  ev.Definition.ID,
		DescriptorMap: mappings,
	}

	logger.Debug("presentation created",
		zap.String("definition", submission.DefinitionID),
		zap.String("submission", submission.ID),
		zap.Int("credentials", len(credentials)))

	return &PresentationResult{
		Presentation: &document.Presentation{
			Context:                []string{document.CredentialsContextV1},
			Type:                   []string{document.VerifiablePresentationType},
			PresentationSubmission: submission,
			VerifiableCredential:   credentials,
		},
		PresentationSubmission: submission,
	}
}

func credentialPath(idx int) string {
	return fmt.Sprintf("$.verifiableCredential[%d]", idx)
}
