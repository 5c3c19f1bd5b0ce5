package translator

import (
	"context"
	"fmt"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService translates through the Google Cloud Translation API.
// It is the non-LLM alternative backend; its output needs no
// normalization pass.
type GoogleService struct {
	credentials string
}

// NewGoogleService creates the provider. credentials may be empty to
// use ambient application-default credentials.
func NewGoogleService(credentials string) *GoogleService {
	return &GoogleService{credentials: credentials}
}

func (s *GoogleService) Name() string { return "google" }

func (s *GoogleService) Translate(ctx context.Context, req Request) (*Result, error) {
	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, &ServiceError{Kind: KindInvalidRequest, Err: fmt.Errorf("invalid target language: %w", err)}
	}

	var opts []option.ClientOption
	if s.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentials))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, &ServiceError{Kind: KindUnreachable, Err: err}
	}
	defer client.Close()

	var translations []translate.Translation
	if req.SourceLang == "" || req.SourceLang == "auto" {
		translations, err = client.Translate(ctx, []string{req.Text}, target, nil)
	} else {
		source, perr := language.Parse(req.SourceLang)
		if perr != nil {
			return nil, &ServiceError{Kind: KindInvalidRequest, Err: fmt.Errorf("invalid source language: %w", perr)}
		}
		translations, err = client.Translate(ctx, []string{req.Text}, target, &translate.Options{Source: source})
	}
	if err != nil {
		if IsTimeout(err) {
			return nil, &ServiceError{Kind: KindTimeout, Err: err}
		}
		return nil, &ServiceError{Kind: KindServerError, Err: err}
	}

	if len(translations) == 0 {
		return nil, &ServiceError{Kind: KindServerError, Err: fmt.Errorf("no translation returned")}
	}
	return &Result{Translation: translations[0].Text}, nil
}
