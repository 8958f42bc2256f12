package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authrepo "kithbook-backend/internal/auth/repository"
	syncdomain "kithbook-backend/internal/sync/domain"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on mailbox changes
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Enqueuer hands a job to the sync worker pool
type Enqueuer interface {
	Enqueue(ctx context.Context, userID string, kind syncdomain.JobKind) (*syncdomain.SyncJob, error)
}

// Watcher registers a mailbox for push notifications
type Watcher interface {
	Watch(ctx context.Context, user *authdomain.User, topicName string) error
}

type Service struct {
	pubsubClient *pubsub.Client
	userRepo     authrepo.UserRepository
	enqueuer     Enqueuer
	watcher      Watcher
	projectID    string
	topicName    string
	subName      string
	logger       *zap.Logger

	mu sync.Mutex
	// last historyId per mailbox address
	lastHistoryID map[string]uint64
}

func NewService(
	ctx context.Context,
	projectID, topicName, credentialsFile string,
	userRepo authrepo.UserRepository,
	enqueuer Enqueuer,
	watcher Watcher,
	logger *zap.Logger,
) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	svc := newService(userRepo, enqueuer, watcher, topicName, logger)
	svc.pubsubClient = client
	svc.projectID = projectID
	return svc, nil
}

func newService(userRepo authrepo.UserRepository, enqueuer Enqueuer, watcher Watcher, topicName string, logger *zap.Logger) *Service {
	return &Service{
		userRepo:      userRepo,
		enqueuer:      enqueuer,
		watcher:       watcher,
		topicName:     topicName,
		subName:       subscriptionName(topicName),
		logger:        logger.Named("pubsub"),
		lastHistoryID: make(map[string]uint64),
	}
}

// topicID strips the projects/<p>/topics/ prefix of a fully qualified topic
func topicID(topicName string) string {
	if i := strings.LastIndex(topicName, "/"); i >= 0 {
		return topicName[i+1:]
	}
	return topicName
}

// subscriptionName follows the <topic>-sub convention
func subscriptionName(topicName string) string {
	return topicID(topicName) + "-sub"
}

// fullTopic is the qualified name Gmail watch requests expect
func (s *Service) fullTopic() string {
	if strings.HasPrefix(s.topicName, "projects/") {
		return s.topicName
	}
	return fmt.Sprintf("projects/%s/topics/%s", s.projectID, s.topicName)
}

// Start ensures the subscription exists and blocks receiving until ctx ends
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting notification service", zap.String("topic", s.topicName), zap.String("subscription", s.subName))

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription %s: %w", s.subName, err)
	}

	if !exists {
		topic := s.pubsubClient.Topic(topicID(s.topicName))
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("check topic %s: %w", s.topicName, err)
		}
		if !topicExists {
			return fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create subscription %s: %w", s.subName, err)
		}
		s.logger.Info("Created subscription", zap.String("subscription", s.subName))
	}

	s.logger.Info("Listening for messages", zap.String("subscription", s.subName))
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg.Data)
		msg.Ack()
	})
}

// Close releases the Pub/Sub client
func (s *Service) Close() error {
	if s.pubsubClient == nil {
		return nil
	}
	return s.pubsubClient.Close()
}

// WatchUser registers the user's mailbox with the topic
func (s *Service) WatchUser(ctx context.Context, user *authdomain.User) error {
	if s.watcher == nil || !user.HasGoogleAccount() {
		return nil
	}
	return s.watcher.Watch(ctx, user, s.fullTopic())
}

// handleMessage resolves the mailbox owner and queues a Gmail sync. Duplicate or
// stale notifications are dropped.
func (s *Service) handleMessage(ctx context.Context, data []byte) {
	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		s.logger.Warn("Failed to unmarshal notification", zap.Error(err))
		return
	}

	address := strings.ToLower(strings.TrimSpace(notification.EmailAddress))
	if address == "" {
		return
	}

	if !s.markSeen(address, notification.HistoryID) {
		s.logger.Debug("Skipping duplicate notification",
			zap.String("email", address),
			zap.Uint64("history_id", notification.HistoryID),
		)
		return
	}

	user, err := s.userRepo.FindByEmail(ctx, address)
	if err != nil {
		s.logger.Error("Error finding user for notification", zap.String("email", address), zap.Error(err))
		return
	}
	if user == nil {
		s.logger.Debug("No user for notification", zap.String("email", address))
		return
	}

	job, err := s.enqueuer.Enqueue(ctx, user.ID, syncdomain.JobGmail)
	if err != nil {
		s.logger.Warn("Failed to queue Gmail sync", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	s.logger.Info("Queued Gmail sync from push notification",
		zap.String("user_id", user.ID),
		zap.String("job_id", job.ID),
		zap.Uint64("history_id", notification.HistoryID),
	)
}

// markSeen records historyID and reports whether it is newer than the last one seen
func (s *Service) markSeen(address string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastHistoryID[address]; ok && historyID <= last {
		return false
	}
	s.lastHistoryID[address] = historyID
	return true
}
