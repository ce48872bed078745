package pex

import (
	"errors"

	"github.com/samber/lo"
	"github.com/trustbloc/logutil-go/pkg/log"
	"go.uber.org/zap"

	"github.com/kokukuma/pex-verifier/decoder"
	"github.com/kokukuma/pex-verifier/document"
)

// DescriptorMatch lists the candidates satisfying one input descriptor.
type DescriptorMatch struct {
	DescriptorID string
	// Candidates are indexes into Evaluation.Candidates, in candidate order.
	Candidates []int
}

// Evaluation is the outcome of matching every candidate against every input
// descriptor of a definition.
type Evaluation struct {
	Definition *document.PresentationDefinition
	// Candidates holds the successfully decoded credentials in input order.
	Candidates []*decoder.Credential
	// Matches follows the definition's descriptor order.
	Matches      []DescriptorMatch
	DecodeErrors []*decoder.DecodeError
}

// Unsatisfied returns the ids of the descriptors no candidate satisfies.
func (ev *Evaluation) Unsatisfied() []string {
	var ids []string
	for _, m := range ev.Matches {
		if len(m.Candidates) == 0 {
			ids = append(ids, m.DescriptorID)
		}
	}
	return ids
}

// Err returns an *UnsatisfiedDefinitionError when at least one descriptor is unsatisfied.
func (ev *Evaluation) Err() error {
	ids := ev.Unsatisfied()
	if len(ids) == 0 {
		return nil
	}
	return &UnsatisfiedDefinitionError{
		DefinitionID:  ev.Definition.ID,
		DescriptorIDs: ids,
	}
}

// Selected returns the tokens chosen under policy, deduplicated and in first seen order.
func (ev *Evaluation) Selected(policy SelectionPolicy) []string {
	var tokens []string
	for _, m := range ev.Matches {
		if len(m.Candidates) == 0 {
			continue
		}

		picked := m.Candidates
		if policy == FirstMatch {
			picked = picked[:1]
		}
		for _, idx := range picked {
			tokens = append(tokens, ev.Candidates[idx].Token)
		}
	}
	return lo.Uniq(tokens)
}

// Evaluate decodes the candidate tokens and records, per input descriptor, which
// credentials satisfy it. Tokens that fail to decode are left out and reported in
// DecodeErrors; they never abort the evaluation.
func (e *Engine) Evaluate(pd *document.PresentationDefinition, tokens []string) (*Evaluation, error) {
	if pd == nil {
		return nil, ErrNilDefinition
	}

	ev := &Evaluation{Definition: pd}

	for _, token := range tokens {
		cred, decodeErr := e.decode(token)
		if decodeErr != nil {
			logger.Debug("credential excluded from candidates", log.WithError(decodeErr))
			ev.DecodeErrors = append(ev.DecodeErrors, decodeErr)
			continue
		}
		ev.Candidates = append(ev.Candidates, cred)
	}

	for _, m := range compileDefinition(pd) {
		match := DescriptorMatch{DescriptorID: m.descriptor.ID}
		for idx, cred := range ev.Candidates {
			if m.satisfiedBy(cred.Claims) {
				match.Candidates = append(match.Candidates, idx)
			}
		}
		ev.Matches = append(ev.Matches, match)
	}

	logger.Debug("presentation definition evaluated",
		zap.String("definition", pd.ID),
		zap.Int("candidates", len(ev.Candidates)),
		zap.Int("decodeErrors", len(ev.DecodeErrors)),
		zap.Strings("unsatisfied", ev.Unsatisfied()))

	return ev, nil
}

// SelectCredentials returns the credential tokens satisfying the definition,
// ordered by descriptor and deduplicated.
func (e *Engine) SelectCredentials(pd *document.PresentationDefinition, tokens []string) ([]string, error) {
	ev, err := e.Evaluate(pd, tokens)
	if err != nil {
		return nil, err
	}

	if err := ev.Err(); err != nil {
		return nil, err
	}

	return ev.Selected(e.policy), nil
}

// SatisfiesPresentationDefinition returns nil when every input descriptor is
// satisfied by at least one of the tokens.
func (e *Engine) SatisfiesPresentationDefinition(pd *document.PresentationDefinition, tokens []string) error {
	ev, err := e.Evaluate(pd, tokens)
	if err != nil {
		return err
	}
	return ev.Err()
}

// decode wraps the decoder so that every failure, including a decoder returning
// no credential, is a *decoder.DecodeError.
func (e *Engine) decode(token string) (*decoder.Credential, *decoder.DecodeError) {
	cred, err := e.decoder.Decode(token)
	if err == nil && cred == nil {
		err = errors.New("decoder returned no credential")
	}
	if err != nil {
		return nil, asDecodeError(token, err)
	}
	return cred, nil
}

func asDecodeError(token string, err error) *decoder.DecodeError {
	var decodeErr *decoder.DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr
	}
	return &decoder.DecodeError{Token: token, Err: err}
}
