package ai

import (
	"fmt"
	"log/slog"

	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
)

// FallbackClient is a domain.GenerationClient that tries a primary provider
// and, on any failure, retries the identical prompt once against a secondary
// provider. There are no per-provider retries: generation failures are
// usually non-transient, so a second independent provider beats a second
// attempt against the same one.
type FallbackClient struct {
	primary   domain.GenerationClient
	secondary domain.GenerationClient
}

// NewFallbackClient wires the two providers. Both must be non-nil.
func NewFallbackClient(primary, secondary domain.GenerationClient) *FallbackClient {
	return &FallbackClient{primary: primary, secondary: secondary}
}

// Name identifies the composite client in logs.
func (f *FallbackClient) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Generate attempts the primary provider, then the secondary. When both
// fail the returned error carries both underlying messages verbatim.
func (f *FallbackClient) Generate(ctx domain.Context, prompt string) (string, error) {
	text, primaryErr := f.primary.Generate(ctx, prompt)
	if primaryErr == nil {
		observability.GenerationRequests.WithLabelValues(f.primary.Name(), "ok").Inc()
		return text, nil
	}
	observability.GenerationRequests.WithLabelValues(f.primary.Name(), "error").Inc()
	slog.Warn("primary provider failed, falling back",
		slog.String("primary", f.primary.Name()),
		slog.String("secondary", f.secondary.Name()),
		slog.String("error", primaryErr.Error()))

	text, secondaryErr := f.secondary.Generate(ctx, prompt)
	if secondaryErr == nil {
		observability.GenerationRequests.WithLabelValues(f.secondary.Name(), "ok").Inc()
		return text, nil
	}
	observability.GenerationRequests.WithLabelValues(f.secondary.Name(), "error").Inc()
	return "", f.bothFailed(primaryErr, secondaryErr)
}

// GenerateStream streams from the primary provider; when the primary fails
// before producing any output it switches to the secondary. Once a chunk has
// been delivered there is no switching: the consumer has already seen
// partial text from one model and splicing another model's continuation onto
// it would be worse than surfacing the error.
func (f *FallbackClient) GenerateStream(ctx domain.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		chunks, perrs := f.primary.GenerateStream(ctx, prompt)
		delivered := false
		primaryErr := f.pump(ctx, chunks, perrs, out, &delivered)
		if primaryErr == nil {
			return
		}
		if delivered {
			errc <- fmt.Errorf("provider=%s: %w", f.primary.Name(), primaryErr)
			return
		}
		slog.Warn("primary stream failed before first chunk, falling back",
			slog.String("primary", f.primary.Name()),
			slog.String("error", primaryErr.Error()))

		chunks, serrs := f.secondary.GenerateStream(ctx, prompt)
		if secondaryErr := f.pump(ctx, chunks, serrs, out, &delivered); secondaryErr != nil {
			errc <- f.bothFailed(primaryErr, secondaryErr)
		}
	}()
	return out, errc
}

// pump forwards chunks until the stream closes or fails. delivered records
// whether at least one chunk reached the consumer. The provider contract
// closes the content channel first and sends at most one error afterwards,
// so the error read after close cannot block indefinitely.
func (f *FallbackClient) pump(ctx domain.Context, chunks <-chan string, errs <-chan error, out chan<- string, delivered *bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				select {
				case err := <-errs:
					return err
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			select {
			case out <- c:
				*delivered = true
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (f *FallbackClient) bothFailed(primaryErr, secondaryErr error) error {
	return fmt.Errorf("all providers failed: %s: %s; %s: %s: %w",
		f.primary.Name(), primaryErr.Error(),
		f.secondary.Name(), secondaryErr.Error(),
		domain.ErrProvider)
}
