package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	syncdomain "kithbook-backend/internal/sync/domain"

	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUser          = "me"
	maxGmailResults    = 500 // Gmail API maximum
	messageFetchWorker = 10
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func (s *Service) gmailService(ctx context.Context, user *authdomain.User) (*gmail.Service, error) {
	client, err := s.httpClient(ctx, user)
	if err != nil {
		return nil, err
	}
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// ListMessages runs one search query and returns the first page of matches in full.
// Messages that fail to load are logged and left out.
func (s *Service) ListMessages(ctx context.Context, user *authdomain.User, query string, maxResults int64) ([]syncdomain.MessageRecord, error) {
	srv, err := s.gmailService(ctx, user)
	if err != nil {
		return nil, err
	}

	if maxResults <= 0 || maxResults > maxGmailResults {
		maxResults = maxGmailResults
	}

	listQuery := srv.Users.Messages.List(gmailUser).MaxResults(maxResults).Context(ctx)
	if query != "" {
		listQuery = listQuery.Q(query)
	}
	resp, err := listQuery.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	type result struct {
		record syncdomain.MessageRecord
		err    error
		id     string
	}

	results := make(chan result, len(resp.Messages))
	semaphore := make(chan struct{}, messageFetchWorker)

	for _, msg := range resp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			full, err := srv.Users.Messages.Get(gmailUser, msgID).Format("full").Context(ctx).Do()
			if err != nil {
				results <- result{err: err, id: msgID}
				return
			}
			results <- result{record: convertMessage(full), id: msgID}
		}(msg.Id)
	}

	records := make([]syncdomain.MessageRecord, 0, len(resp.Messages))
	for range resp.Messages {
		r := <-results
		if r.err != nil {
			s.logger.Warn("Failed to fetch message", zap.String("user_id", user.ID), zap.String("message_id", r.id), zap.Error(r.err))
			continue
		}
		records = append(records, r.record)
	}

	// parallel fetches complete in random order
	sort.Slice(records, func(i, j int) bool {
		return records[i].ReceivedAt.After(records[j].ReceivedAt)
	})
	return records, nil
}

// Watch starts push notifications for the user's inbox on topicName
func (s *Service) Watch(ctx context.Context, user *authdomain.User, topicName string) error {
	srv, err := s.gmailService(ctx, user)
	if err != nil {
		return err
	}

	// Only one watch per user is allowed; clear any previous one
	_ = srv.Users.Stop(gmailUser).Context(ctx).Do()

	resp, err := srv.Users.Watch(gmailUser, &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %w", err)
	}

	s.logger.Info("Gmail watch started",
		zap.String("user_id", user.ID),
		zap.Int64("expiration", resp.Expiration),
		zap.Uint64("history_id", resp.HistoryId),
	)
	return nil
}

func convertMessage(msg *gmail.Message) syncdomain.MessageRecord {
	var h mail.Header
	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}
	for _, name := range []string{"From", "To", "Subject", "Date"} {
		if v := getHeader(headers, name); v != "" {
			h.Set(name, v)
		}
	}

	record := syncdomain.MessageRecord{
		ExternalID: msg.Id,
		ThreadID:   msg.ThreadId,
		FromHeader: getHeader(headers, "From"),
		Subject:    getHeader(headers, "Subject"),
		Labels:     msg.LabelIds,
		Body:       messageBody(msg),
	}

	if from := parseAddresses(&h, "From"); len(from) > 0 {
		record.FromAddress = from[0].Email
		record.FromDisplayName = from[0].Name
	}
	// Cc recipients are not interaction participants.
	record.To = parseAddresses(&h, "To")

	switch {
	case msg.InternalDate > 0:
		record.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	default:
		if t, err := h.Date(); err == nil {
			record.ReceivedAt = t.UTC()
		}
	}

	return record
}

// parseAddresses reads an address list header. A header that does not parse as
// a list falls back to splitting on commas and keeping entries that carry an @.
func parseAddresses(h *mail.Header, key string) []syncdomain.Address {
	raw := h.Get(key)
	if raw == "" {
		return nil
	}

	list, err := h.AddressList(key)
	if err == nil {
		out := make([]syncdomain.Address, 0, len(list))
		for _, a := range list {
			out = append(out, syncdomain.Address{Email: strings.ToLower(a.Address), Name: a.Name})
		}
		return out
	}

	var out []syncdomain.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		name := ""
		if lt := strings.LastIndex(part, "<"); lt >= 0 {
			name = strings.Trim(strings.TrimSpace(part[:lt]), `"`)
			part = strings.TrimSuffix(part[lt+1:], ">")
		}
		if strings.Contains(part, "@") {
			out = append(out, syncdomain.Address{Email: strings.ToLower(strings.TrimSpace(part)), Name: name})
		}
	}
	return out
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// messageBody prefers the plain text part, then stripped HTML, then the snippet.
func messageBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return msg.Snippet
	}

	var plain, html string
	var walk func(part *gmail.MessagePart)
	walk = func(part *gmail.MessagePart) {
		if part.Body != nil && part.Body.Data != "" {
			if data, ok := decodeBody(part.Body.Data); ok {
				switch {
				case strings.HasPrefix(part.MimeType, "text/plain") && plain == "":
					plain = data
				case strings.HasPrefix(part.MimeType, "text/html") && html == "":
					html = data
				}
			}
		}
		for _, p := range part.Parts {
			walk(p)
		}
	}
	walk(msg.Payload)

	switch {
	case plain != "":
		return plain
	case html != "":
		text := htmlTagRe.ReplaceAllString(html, " ")
		text = strings.NewReplacer("&nbsp;", " ", "&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`).Replace(text)
		return strings.Join(strings.Fields(text), " ")
	default:
		return msg.Snippet
	}
}

func decodeBody(data string) (string, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
