package resources

import (
	"context"
	"fmt"
	"os"

	"github.com/ALT-F4-LLC/spacerestore/internal/api"
	"github.com/ALT-F4-LLC/spacerestore/internal/backup"
	"github.com/ALT-F4-LLC/spacerestore/internal/model"
	"github.com/ALT-F4-LLC/spacerestore/internal/restore"
)

// Assets restores assets with the signed upload flow: request an upload
// signature, post the backed-up binary to the signed URL, then finish the
// upload. Assets are never matched against existing ones.
type Assets struct {
	Endpoint
	Uploader api.Uploader
}

var _ restore.Creator = Assets{}

func (a Assets) Create(ctx context.Context, t api.Transport, r model.Resource, opts model.Options) (model.Resource, error) {
	if a.Uploader == nil {
		return model.Resource{}, fmt.Errorf("asset %d: no uploader configured", r.ID())
	}

	path, err := backup.AssetFile(opts.BackupPath, r)
	if err != nil {
		return model.Resource{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return model.Resource{}, fmt.Errorf("asset file: %w", err)
	}
	defer file.Close()

	body := r.Without("id").Fields()
	body["validate_upload"] = 1
	sig, err := t.Post(ctx, a.CreateEndpoint(opts), body)
	if err != nil {
		return model.Resource{}, fmt.Errorf("requesting upload signature: %w", err)
	}

	signature := model.NewResource(sig)
	postURL, _ := signature.String("post_url")
	if signature.ID() == 0 || postURL == "" {
		return model.Resource{}, fmt.Errorf("requesting upload signature: response has no id or post_url")
	}
	fields := make(map[string]string)
	if raw, ok := sig["fields"].(map[string]any); ok {
		for k, v := range raw {
			fields[k] = fmt.Sprint(v)
		}
	}

	name, _ := r.String("short_filename")
	if name == "" {
		name = r.Label()
	}
	if err := a.Uploader.Upload(ctx, postURL, fields, name, file); err != nil {
		return model.Resource{}, fmt.Errorf("uploading %s: %w", name, err)
	}

	finished, err := t.Get(ctx, fmt.Sprintf("spaces/%s/assets/%d/finish_upload", opts.SpaceID, signature.ID()), nil)
	if err != nil {
		return model.Resource{}, fmt.Errorf("finishing upload: %w", err)
	}
	return decodeEnvelope(finished, a.Envelope)
}
