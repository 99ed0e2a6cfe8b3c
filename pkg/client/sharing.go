package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/inbox"
	"github.com/fula-project/gateway/pkg/secretlink"
	"github.com/fula-project/gateway/pkg/sharing"
)

// ShareBucket grants a recipient temporal or snapshot access to bucketName
// under pathScope, expiring after ttl (zero means never), then returns the
// share token wrapped in a secret-link URL rooted at gatewayURL. The
// recipient never needs to contact bucketName's owner to decrypt it:
// resolving the URL fragment yields the wrapped bucket DEK directly.
func (c *Client) ShareBucket(bucketName, pathScope string, recipient hpke.PublicKey, ttl time.Duration, readWrite bool, gatewayURL string) (string, error) {
	dek := c.mgr.DeriveForestKey(bucketName)

	b := sharing.NewBuilder(recipient, dek).PathScope(pathScope)
	if readWrite {
		b = b.ReadWrite()
	} else {
		b = b.ReadOnly()
	}
	if ttl > 0 {
		b = b.ExpiresIn(ttl)
	}
	token, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("client: building share token: %w", err)
	}

	link := secretlink.New(gatewayURL, token)
	return secretlink.ToURL(link)
}

// AcceptShareURL parses a secret-link URL produced by ShareBucket and
// returns the bucket DEK it grants, ready to pass to forest.Forest
// operations. Since the fragment carries the whole token, no round trip
// to the gateway is required to accept it.
func AcceptShareURL(now time.Time, rawURL string, recipientPrivate hpke.PrivateKey) (*sharing.Accepted, error) {
	link, err := secretlink.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parsing share url: %w", err)
	}
	recipient := sharing.NewRecipient(recipientPrivate)
	return recipient.AcceptShare(now, link.Token)
}

// SendShare asynchronously delivers a share by HPKE-sealing it to
// recipientPublic and writing the resulting inbox entry to the gateway's
// well-known inbox namespace, for a recipient who will only discover it
// later (store-and-forward sharing, as opposed to ShareBucket's
// synchronous secret-link handoff).
func (c *Client) SendShare(ctx context.Context, inboxBucket, bucketName, pathScope string, recipient hpke.PublicKey, ttl time.Duration, label string) (string, error) {
	dek := c.mgr.DeriveForestKey(bucketName)

	builder := inbox.NewEnvelopeBuilder(recipient, dek).PathScope(pathScope).ReadOnly().Label(label)
	if ttl > 0 {
		builder = builder.ExpiresIn(ttl)
	}
	now := time.Now()
	_, entry, err := builder.Build(now)
	if err != nil {
		return "", fmt.Errorf("client: building share envelope: %w", err)
	}

	path, err := inbox.EntryStoragePath(recipient, entry.ID)
	if err != nil {
		return "", err
	}
	data, err := entry.ToBytes()
	if err != nil {
		return "", fmt.Errorf("client: encoding inbox entry: %w", err)
	}
	if err := c.putRaw(ctx, inboxBucket, inboxObjectKey(path), data); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// ListInboxEntries fetches every pending share envelope addressed to
// recipientPublic from the gateway's inbox namespace. Entries remain
// HPKE-sealed; callers decrypt individual ones via AcceptInboxEntry.
func (c *Client) ListInboxEntries(ctx context.Context, inboxBucket string, recipientPublic hpke.PublicKey) ([]*inbox.Entry, error) {
	dir, err := inbox.PathForRecipient(recipientPublic)
	if err != nil {
		return nil, err
	}

	listing, err := c.listRaw(ctx, inboxBucket, strings.TrimPrefix(dir, "/"))
	if err != nil {
		return nil, err
	}

	entries := make([]*inbox.Entry, 0, len(listing))
	for _, key := range listing {
		data, err := c.getRaw(ctx, inboxBucket, key)
		if err != nil {
			continue
		}
		entry, err := inbox.LoadEntry(data)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AcceptInboxEntry decrypts entry's envelope under recipientPrivate.
func AcceptInboxEntry(entry *inbox.Entry, recipientPrivate hpke.PrivateKey) (*inbox.Envelope, error) {
	return entry.Decrypt(recipientPrivate)
}

// inboxObjectKey strips the leading slash from an inbox storage path (the
// inbox package models paths the way the private forest does; S3 object
// keys conventionally omit the leading separator).
func inboxObjectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}
