package client

import (
	"context"
	"net/url"
)

// DownloadOptions are the optional parameters of DownloadFile.
type DownloadOptions struct {
	// Encoding is "raw" or "cart". The server default applies when empty.
	Encoding string
	// Password protects zip encoded downloads.
	Password string
	// SID names the submission the file is fetched for.
	SID string
}

// FileInfo returns the file record for sha256.
func (c *Client) FileInfo(ctx context.Context, sha256 string) (*FileInfo, error) {
	if err := c.requireCurrent("file info"); err != nil {
		return nil, err
	}
	var fi FileInfo
	if err := c.Get(ctx, APIPath("file/info", sha256), &fi); err != nil {
		return nil, err
	}
	return &fi, nil
}

// DownloadFile fetches the content of sha256 and hands it to decode, e.g.
// RawOutput or FileOutput.
func (c *Client) DownloadFile(ctx context.Context, sha256 string, opts *DownloadOptions, decode Decoder) error {
	if err := c.requireCurrent("file download"); err != nil {
		return err
	}
	if opts == nil {
		opts = &DownloadOptions{}
	}
	q := url.Values{
		"encoding": {opts.Encoding},
		"password": {opts.Password},
		"sid":      {opts.SID},
	}
	return c.Download(ctx, APIPathQuery("file/download", q, sha256), decode)
}
