package client

import (
	"context"
	"encoding/json"
)

// Submission returns the submission record for sid.
func (c *Client) Submission(ctx context.Context, sid string) (*Submission, error) {
	if err := c.requireCurrent("submission"); err != nil {
		return nil, err
	}
	var sub Submission
	if err := c.Get(ctx, APIPath("submission", sid), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SubmissionFull returns the submission with its results and errors expanded.
// The payload is left undecoded since its shape depends on the services run.
func (c *Client) SubmissionFull(ctx context.Context, sid string) (json.RawMessage, error) {
	if err := c.requireCurrent("submission full"); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.Get(ctx, APIPath("submission/full", sid), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SubmissionIsCompleted reports whether all analysis for sid has finished.
func (c *Client) SubmissionIsCompleted(ctx context.Context, sid string) (bool, error) {
	if err := c.requireCurrent("submission is_completed"); err != nil {
		return false, err
	}
	var done bool
	if err := c.Get(ctx, APIPath("submission/is_completed", sid), &done); err != nil {
		return false, err
	}
	return done, nil
}

// DeleteSubmission removes sid and its results.
func (c *Client) DeleteSubmission(ctx context.Context, sid string) error {
	if err := c.requireCurrent("submission delete"); err != nil {
		return err
	}
	return c.Delete(ctx, APIPath("submission", sid), nil)
}
