package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Raman369AI/fileProcessor/config"
	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

const (
	deltaSelectFields = "id,subject,from,receivedDateTime,hasAttachments,bodyPreview"
	graphScope        = "https://graph.microsoft.com/.default"
	maxDeltaPages     = 50
)

type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphMessage struct {
	ID               string          `json:"id"`
	Subject          string          `json:"subject"`
	From             *graphRecipient `json:"from"`
	ReceivedDateTime string          `json:"receivedDateTime"`
	HasAttachments   bool            `json:"hasAttachments"`
	BodyPreview      string          `json:"bodyPreview"`
	Removed          json.RawMessage `json:"@removed"`
}

type deltaPage struct {
	Value     []graphMessage `json:"value"`
	NextLink  string         `json:"@odata.nextLink"`
	DeltaLink string         `json:"@odata.deltaLink"`
}

type attachmentPage struct {
	Value []interfaces.AttachmentRef `json:"value"`
}

// Client talks to the Microsoft Graph mail API using delta queries. The
// persisted delta link is resubmitted verbatim, so requests are built
// from raw URLs rather than an SDK's typed query builders.
type Client struct {
	cfg         *config.GraphConfig
	log         logger.Logger
	cursor      interfaces.CursorStore
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	emailGroups []string
}

func NewClient(cfg *config.GraphConfig, cursor interfaces.CursorStore, log logger.Logger) interfaces.MailClient {
	base := &http.Client{Timeout: time.Duration(cfg.RequestTimeout) * time.Second}

	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(cfg.AuthorityURL, "/"), cfg.TenantID),
		Scopes:       []string{graphScope},
	}

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	tokenSource := credentials.TokenSource(tokenCtx)

	return &Client{
		cfg:         cfg,
		log:         log,
		cursor:      cursor,
		httpClient:  oauth2.NewClient(tokenCtx, tokenSource),
		tokenSource: tokenSource,
		emailGroups: utils.StringToSlice(cfg.EmailGroups),
	}
}

func (c *Client) Authenticate(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "GraphClient.Authenticate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !c.cfg.IsConfigured() {
		return fileprocessor_errors.ErrIngestionDisabled
	}

	_, err := c.tokenSource.Token()
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(fileprocessor_errors.ErrAuthFailed, err.Error())
	}

	return nil
}

// FetchNewMessages walks the delta feed from the stored cursor, following
// nextLink pages until the service hands back a deltaLink. The cursor is
// persisted only once the whole sweep succeeded, so a mid-sweep failure
// replays the same changes on the next cycle.
func (c *Client) FetchNewMessages(ctx context.Context) ([]interfaces.Message, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphClient.FetchNewMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if !c.cfg.IsConfigured() {
		return nil, fileprocessor_errors.ErrIngestionDisabled
	}

	startURL, err := c.cursor.Load()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if startURL == "" {
		startURL = c.initialDeltaURL()
		c.log.Info("no delta cursor found, starting full sync")
	}

	messages, deltaLink, err := c.walkDelta(ctx, startURL)
	if err != nil {
		if errors.Is(err, errGoneCursor) {
			// Delta token expired server-side, the only recovery is a
			// fresh full sync.
			c.log.Warn("delta cursor expired, resetting and resyncing")
			if resetErr := c.cursor.Reset(); resetErr != nil {
				tracing.TraceErr(span, resetErr)
				return nil, resetErr
			}
			messages, deltaLink, err = c.walkDelta(ctx, c.initialDeltaURL())
		}
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	if deltaLink != "" {
		if err := c.cursor.Save(deltaLink); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	span.LogKV("result.messages", len(messages))
	return messages, nil
}

var errGoneCursor = errors.New("delta cursor gone")

func (c *Client) walkDelta(ctx context.Context, startURL string) ([]interfaces.Message, string, error) {
	var messages []interfaces.Message
	pageURL := startURL

	for page := 0; page < maxDeltaPages; page++ {
		body, status, err := c.get(ctx, pageURL)
		if err != nil {
			return nil, "", errors.Wrap(fileprocessor_errors.ErrFetchFailed, err.Error())
		}
		if status == http.StatusGone {
			return nil, "", errGoneCursor
		}
		if status != http.StatusOK {
			return nil, "", errors.Wrapf(fileprocessor_errors.ErrFetchFailed, "delta request returned %d", status)
		}

		var delta deltaPage
		if err := json.Unmarshal(body, &delta); err != nil {
			return nil, "", errors.Wrap(fileprocessor_errors.ErrFetchFailed, err.Error())
		}

		for _, m := range delta.Value {
			if msg, ok := c.acceptMessage(m); ok {
				messages = append(messages, msg)
			}
		}

		if delta.NextLink != "" {
			pageURL = delta.NextLink
			continue
		}
		return messages, delta.DeltaLink, nil
	}

	return nil, "", errors.Wrap(fileprocessor_errors.ErrFetchFailed, "delta pagination did not terminate")
}

// acceptMessage drops tombstones and, when sender groups are configured,
// messages from outside those groups. Messages without attachments pass
// through, the ingestion loop counts and skips them.
func (c *Client) acceptMessage(m graphMessage) (interfaces.Message, bool) {
	if len(m.Removed) > 0 {
		return interfaces.Message{}, false
	}

	msg := interfaces.Message{
		ID:             m.ID,
		Subject:        m.Subject,
		HasAttachments: m.HasAttachments,
		BodyPreview:    m.BodyPreview,
	}
	if m.From != nil {
		msg.SenderName = m.From.EmailAddress.Name
		msg.SenderAddress = m.From.EmailAddress.Address
	}
	if m.ReceivedDateTime != "" {
		if t, err := time.Parse(time.RFC3339, m.ReceivedDateTime); err == nil {
			msg.ReceivedAt = t
		}
	}

	if len(c.emailGroups) > 0 && !c.senderMatchesGroups(msg.SenderAddress) {
		return interfaces.Message{}, false
	}

	return msg, true
}

func (c *Client) senderMatchesGroups(sender string) bool {
	sender = strings.ToLower(sender)
	for _, group := range c.emailGroups {
		if group != "" && strings.Contains(sender, strings.ToLower(group)) {
			return true
		}
	}
	return false
}

func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]interfaces.AttachmentRef, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphClient.ListAttachments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagMessageId, messageID)

	listURL := fmt.Sprintf("%s/me/messages/%s/attachments?$select=id,name,contentType,size",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(messageID))

	body, status, err := c.get(ctx, listURL)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(fileprocessor_errors.ErrFetchFailed, err.Error())
	}
	if status != http.StatusOK {
		err = errors.Wrapf(fileprocessor_errors.ErrFetchFailed, "attachment list returned %d", status)
		tracing.TraceErr(span, err)
		return nil, err
	}

	var page attachmentPage
	if err := json.Unmarshal(body, &page); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(fileprocessor_errors.ErrFetchFailed, err.Error())
	}

	return page.Value, nil
}

func (c *Client) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphClient.DownloadAttachment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagMessageId, messageID)

	downloadURL := fmt.Sprintf("%s/me/messages/%s/attachments/%s/$value",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(messageID), url.PathEscape(attachmentID))

	body, status, err := c.get(ctx, downloadURL)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(fileprocessor_errors.ErrDownloadFailed, err.Error())
	}
	if status != http.StatusOK {
		err = errors.Wrapf(fileprocessor_errors.ErrDownloadFailed, "attachment download returned %d", status)
		tracing.TraceErr(span, err)
		return nil, err
	}

	return body, nil
}

func (c *Client) HasCursor() bool {
	cursor, err := c.cursor.Load()
	return err == nil && cursor != ""
}

func (c *Client) initialDeltaURL() string {
	return fmt.Sprintf("%s/me/messages/delta?$select=%s", strings.TrimRight(c.cfg.BaseURL, "/"), deltaSelectFields)
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}
