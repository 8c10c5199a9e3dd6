package resource

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/nicwaller/proxy-fetch/pkg/httpclient"
)

const uploadContentType = "application/octet-stream"

// Uploader writes local content to remote locations with PUT
type Uploader struct {
	client HTTPClient
}

func NewUploader(client HTTPClient) *Uploader {
	return &Uploader{client: client}
}

// Upload sends local to destination. The body is reopened if the request
// has to be sent again, for example after a redirect.
func (u *Uploader) Upload(ctx context.Context, local LocalResource, destination *url.URL) error {
	body := &httpclient.Body{
		ContentType: uploadContentType,
		Length:      local.Size(),
		Open:        local.Open,
	}
	resp, err := u.client.PerformRequest(ctx, httpclient.MethodPut, destination, body)
	if err != nil {
		return err
	}
	defer httpclient.Drain(resp)

	if !httpclient.WasSuccessful(resp) {
		return httpclient.NewStatusError(httpclient.MethodPut, destination, resp)
	}
	log.Debug().Stringer("uri", destination).Int64("size", local.Size()).Msg("resource: uploaded")
	return nil
}
