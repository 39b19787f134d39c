package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/logging"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/registry"
)

// ReferenceRewriter replaces old uuids embedded anywhere in the payload of
// already-restored items with their new uuids.
//
// For every old→new pair recorded by the batch it searches Collection in
// the target space with SearchParam=<old uuid>, fetches each match, does a
// literal substring replacement over the serialized payload and writes the
// result back. The replacement is textual: an old uuid appearing inside
// unrelated data is rewritten too.
type ReferenceRewriter struct {
	Transport   api.Transport
	Collection  string // path under spaces/<id>/, e.g. "stories"
	Envelope    string // request/response key of one item, e.g. "story"
	SearchParam string // defaults to "reference_search"
}

// PostProcess rewrites references for every uuid pair recorded by the
// batch. Failures are logged and isolated per pair and per item; all of
// them are returned joined once every pair has been processed.
func (p *ReferenceRewriter) PostProcess(ctx context.Context, _ []model.Resource, pairs []registry.UUIDPair, opts model.Options) (*model.PostprocessSummary, error) {
	summary := &model.PostprocessSummary{Pairs: len(pairs)}
	if len(pairs) == 0 {
		return summary, nil
	}

	param := p.SearchParam
	if param == "" {
		param = "reference_search"
	}
	collection := fmt.Sprintf("spaces/%s/%s", opts.SpaceID, p.Collection)

	var errs []error
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		log := logging.For(ctx).WithFields(logrus.Fields{"old_uuid": pair.Old, "new_uuid": pair.New})

		matches, err := p.Transport.GetAll(ctx, collection, url.Values{param: {pair.Old}})
		if err != nil {
			summary.Failed++
			log.WithError(err).Warn("searching references failed")
			errs = append(errs, fmt.Errorf("searching references to %s: %w", pair.Old, err))
			continue
		}
		summary.Searched++
		summary.Matches += len(matches)

		if len(matches) > 0 {
			log.WithField("matches", len(matches)).Info("rewriting references")
		}

		for _, match := range matches {
			rewritten, err := p.rewrite(ctx, collection, match, pair)
			if err != nil {
				summary.Failed++
				log.WithError(err).WithField("item", match.ID()).Warn("rewriting reference failed")
				errs = append(errs, err)
				continue
			}
			if rewritten {
				summary.Rewritten++
			}
		}
	}

	logging.For(ctx).WithFields(logrus.Fields{
		"pairs":     summary.Pairs,
		"matches":   summary.Matches,
		"rewritten": summary.Rewritten,
		"failed":    summary.Failed,
	}).Info("reference rewrite finished")

	return summary, errors.Join(errs...)
}

func (p *ReferenceRewriter) rewrite(ctx context.Context, collection string, match model.Resource, pair registry.UUIDPair) (bool, error) {
	itemPath := fmt.Sprintf("%s/%d", collection, match.ID())

	resp, err := p.Transport.Get(ctx, itemPath, nil)
	if err != nil {
		return false, fmt.Errorf("fetching %s: %w", itemPath, err)
	}
	item, ok := resp[p.Envelope].(map[string]any)
	if !ok {
		return false, fmt.Errorf("fetching %s: response has no %q object", itemPath, p.Envelope)
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", itemPath, err)
	}
	if !bytes.Contains(raw, []byte(pair.Old)) {
		return false, nil
	}
	replaced := strings.ReplaceAll(string(raw), pair.Old, pair.New)

	var updated map[string]any
	dec := json.NewDecoder(strings.NewReader(replaced))
	dec.UseNumber()
	if err := dec.Decode(&updated); err != nil {
		return false, fmt.Errorf("decoding rewritten %s: %w", itemPath, err)
	}

	if _, err := p.Transport.Put(ctx, itemPath, map[string]any{p.Envelope: updated}); err != nil {
		return false, fmt.Errorf("updating %s: %w", itemPath, err)
	}
	return true, nil
}
