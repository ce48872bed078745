package pex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"

	"github.com/kokukuma/pex-verifier/decoder"
	"github.com/kokukuma/pex-verifier/document"
)

// Match checks a received presentation against the definition: every descriptor
// mapped by the embedded submission must select a credential satisfying that
// descriptor, and every descriptor of the definition must be mapped. It returns
// the matched credentials keyed by descriptor id.
func (e *Engine) Match(
	pd *document.PresentationDefinition,
	vp *document.Presentation,
) (map[string]*decoder.Credential, error) {
	if pd == nil {
		return nil, ErrNilDefinition
	}

	if vp == nil || vp.PresentationSubmission == nil {
		return nil, fmt.Errorf("missing presentation_submission on verifiable presentation")
	}

	sub := vp.PresentationSubmission
	if sub.DefinitionID != pd.ID {
		return nil, fmt.Errorf("presentation_submission definition_id %q does not match definition %q",
			sub.DefinitionID, pd.ID)
	}

	descriptors := make(map[string]*document.InputDescriptor, len(pd.InputDescriptors))
	for _, d := range pd.InputDescriptors {
		if d != nil {
			descriptors[d.ID] = d
		}
	}

	typeless, err := toTypeless(vp)
	if err != nil {
		return nil, err
	}

	builder := gval.Full(jsonpath.PlaceholderExtension())
	result := make(map[string]*decoder.Credential)

	for _, mapping := range sub.DescriptorMap {
		if mapping == nil {
			continue
		}

		d, ok := descriptors[mapping.ID]
		if !ok {
			return nil, fmt.Errorf(
				"a descriptor_map ID was found that did not match the `id` property of any input descriptor: %s",
				mapping.ID)
		}

		token, err := selectToken(builder, typeless, mapping.Path)
		if err != nil {
			return nil, err
		}

		cred, decodeErr := e.decode(token)
		if decodeErr != nil {
			return nil, fmt.Errorf("input descriptor %s: %w", mapping.ID, decodeErr)
		}

		if !newDescriptorMatcher(d).satisfiedBy(cred.Claims) {
			return nil, fmt.Errorf("credential selected by path [%s] does not satisfy input descriptor %s",
				mapping.Path, mapping.ID)
		}

		result[mapping.ID] = cred
	}

	var missing []string
	for _, id := range pd.DescriptorIDs() {
		if _, ok := result[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &UnsatisfiedDefinitionError{DefinitionID: pd.ID, DescriptorIDs: missing}
	}

	return result, nil
}

func toTypeless(vp *document.Presentation) (interface{}, error) {
	raw, err := json.Marshal(vp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vp: %w", err)
	}

	var typeless interface{}
	if err := json.Unmarshal(raw, &typeless); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vp: %w", err)
	}
	return typeless, nil
}

func selectToken(builder gval.Language, vp interface{}, path string) (string, error) {
	eval, err := builder.NewEvaluable(path)
	if err != nil {
		return "", fmt.Errorf("failed to build new json path evaluator: %w", err)
	}

	selected, err := eval(context.Background(), vp)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate json path [%s]: %w", path, err)
	}

	token, ok := selected.(string)
	if !ok {
		return "", fmt.Errorf("json path [%s] does not select an encoded credential", path)
	}
	return token, nil
}
