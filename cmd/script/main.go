package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/kokukuma/pex-verifier/credential_data"
	"github.com/kokukuma/pex-verifier/document"
	"github.com/kokukuma/pex-verifier/pex"
)

var (
	issuerDID  = "did:example:bank"
	subjectDID = "did:example:alice"

	// optional file with one encoded credential per line, e.g. a wallet export
	credentialsPath = os.Getenv("PEX_CREDENTIALS_PATH")
)

func main() {
	tokens, err := loadCredentials()
	if err != nil {
		panic("failed to load credentials: " + err.Error())
	}

	engine := pex.New()
	exchange(engine, credential_data.LoanApplicationDefinition(), tokens)

	// a definition asking for exactly the claims the sample holder carries
	if credentialsPath == "" {
		exchange(engine, credential_data.LoanApplicationSubjects().PresentationDefinition("sampleHolderClaims"), tokens)
	}
}

func exchange(engine *pex.Engine, pd *document.PresentationDefinition, tokens []string) {
	fmt.Println("presentation definition:", pd.ID)

	if report := pex.ValidateDefinition(pd); pex.HasErrors(report) {
		panic(fmt.Sprintf("invalid presentation definition: %v", report))
	}

	ev, err := engine.Evaluate(pd, tokens)
	if err != nil {
		panic("failed to evaluate definition: " + err.Error())
	}
	for _, decodeErr := range ev.DecodeErrors {
		fmt.Println("skipped:", decodeErr)
	}
	for _, m := range ev.Matches {
		fmt.Println(m.DescriptorID, ": candidates", m.Candidates)
	}

	selected, err := engine.SelectCredentials(pd, tokens)
	if err != nil {
		panic("failed to select credentials: " + err.Error())
	}
	fmt.Println("selected", len(selected), "of", len(tokens), "credentials")

	result, err := engine.CreatePresentationFromCredentials(pd, selected)
	if err != nil {
		panic("failed to create presentation: " + err.Error())
	}

	for _, c := range pex.ValidateSubmission(result.PresentationSubmission) {
		fmt.Println(c.Tag, c.Status, ":", c.Message)
	}

	matched, err := engine.Match(pd, result.Presentation)
	if err != nil {
		panic("failed to match presentation: " + err.Error())
	}
	for id, cred := range matched {
		fmt.Println(id, ":", cred.Types, cred.Subject)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		panic("failed to marshal presentation: " + err.Error())
	}
	fmt.Println(string(out))
}

func loadCredentials() ([]string, error) {
	if credentialsPath == "" {
		return issueSampleCredentials()
	}

	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", credentialsPath, err)
	}

	var tokens []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tokens = append(tokens, line)
		}
	}
	return tokens, nil
}

func issueSampleCredentials() ([]string, error) {
	issuer, err := credential_data.NewIssuer(issuerDID)
	if err != nil {
		return nil, err
	}

	jwks, err := json.Marshal(issuer.JWKS())
	if err != nil {
		return nil, err
	}
	fmt.Println("issuer", issuer.DID, "jwks:", string(jwks))

	subjects := credential_data.LoanApplicationSubjects()
	spew.Dump(subjects)

	return subjects.Issue(issuer, subjectDID)
}
