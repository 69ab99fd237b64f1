package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// resolve performs the second phase of the placeholder protocol: every
// recorded request is resolved through its collaborator and mapped from its
// placeholder token to the resolved markup.
//
// Requests are never deduplicated: two identical icon requests trigger two
// independent resolver calls, so a collaborator failure surfaces at every
// occurrence instead of being masked by a cache. Requests within a namespace
// carry no ordering requirement and run concurrently; all must complete
// before substitution. Any failure is fatal to the document.
func (t *Transformer) resolve(ctx context.Context, pending *pendingOps) (map[string]string, error) {
	if pending.empty() {
		return nil, nil
	}
	if len(pending.icons) > 0 && t.Icons == nil {
		return nil, errors.New("template requested icons but no icon resolver is configured")
	}
	if (len(pending.cites) > 0 || len(pending.expands) > 0) && t.Refs == nil {
		return nil, errors.New("template requested citations but no citation formatter is configured")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		resolved = make(map[string]string, len(pending.icons)+len(pending.cites)+len(pending.expands))
		errs     []error
	)
	record := func(token, value string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		resolved[token] = value
	}

	for id, req := range pending.icons {
		id, req := id, req
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := t.Icons.Render(ctx, req.name, req.opts)
			if err != nil {
				err = fmt.Errorf("resolve icon %q: %w", req.name, err)
			}
			record(placeholder("icon", id), value, err)
		}()
	}
	for id, citeID := range pending.cites {
		id, citeID := id, citeID
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := t.Refs.FormatInline(ctx, citeID)
			if err != nil {
				err = fmt.Errorf("format citation %q: %w", citeID, err)
			}
			record(placeholder("cite", id), value, err)
		}()
	}
	for id, text := range pending.expands {
		id, text := id, text
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := t.Refs.ExpandCitations(ctx, text)
			if err != nil {
				err = fmt.Errorf("expand citations: %w", err)
			}
			record(placeholder("expand", id), value, err)
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return resolved, nil
}
