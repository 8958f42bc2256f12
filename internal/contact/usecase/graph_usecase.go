package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"kithbook-backend/internal/contact/domain"
	"kithbook-backend/internal/contact/identity"
	"kithbook-backend/internal/contact/repository"
	interactionrepo "kithbook-backend/internal/interaction/repository"

	"go.uber.org/zap"
)

const (
	minNodeSize = 10
	maxNodeSize = 50
	edgeKeySep  = "|"
)

// graphUsecase implements GraphUsecase interface
type graphUsecase struct {
	contactRepo     repository.ContactRepository
	interactionRepo interactionrepo.InteractionRepository
	logger          *zap.Logger
}

// NewGraphUsecase creates a new instance of graphUsecase
func NewGraphUsecase(contactRepo repository.ContactRepository, interactionRepo interactionrepo.InteractionRepository, logger *zap.Logger) GraphUsecase {
	return &graphUsecase{
		contactRepo:     contactRepo,
		interactionRepo: interactionRepo,
		logger:          logger.Named("network-graph"),
	}
}

type edgeAccumulator struct {
	weight       int
	interactions []string
}

func (u *graphUsecase) GetNetworkGraphData(ctx context.Context, userID string) (*domain.NetworkGraph, error) {
	contacts, err := u.contactRepo.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	known := make(map[string]struct{}, len(contacts))
	nodes := make([]domain.NetworkNode, 0, len(contacts))
	for _, c := range contacts {
		email := identity.NormalizeEmail(c.Email)
		known[email] = struct{}{}
		nodes = append(nodes, newNode(c))
	}

	emails, err := u.interactionRepo.FindAllEmails(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load emails: %w", err)
	}
	events, err := u.interactionRepo.FindAllEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load calendar events: %w", err)
	}

	edges := make(map[string]*edgeAccumulator)

	for _, e := range emails {
		participants := participantSet(e.Participants(), known)
		subject := e.Subject
		if subject == "" {
			subject = "No subject"
		}
		addPairs(edges, participants, "Email: "+subject)
	}

	for _, ev := range events {
		participants := participantSet(ev.Participants(), known)
		title := ev.Title
		if title == "" {
			title = "No title"
		}
		addPairs(edges, participants, "Meeting: "+title)
	}

	graph := &domain.NetworkGraph{
		Nodes: nodes,
		Edges: collectEdges(edges),
	}
	u.logger.Debug("Built network graph",
		zap.String("user_id", userID),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
	)
	return graph, nil
}

func newNode(c *domain.Contact) domain.NetworkNode {
	label := c.Name
	if label == "" {
		label, _, _ = strings.Cut(c.Email, "@")
	}
	return domain.NetworkNode{
		ID:    c.Email,
		Label: label,
		Email: c.Email,
		Size:  nodeSize(c.InteractionCount),
		Color: nodeColor(c.InteractionCount),
	}
}

func nodeSize(count int) int {
	return min(max(count*2, minNodeSize), maxNodeSize)
}

func nodeColor(count int) string {
	switch {
	case count >= 20:
		return "#ff4444"
	case count >= 10:
		return "#ff8844"
	case count >= 5:
		return "#ffcc44"
	default:
		return "#44ccff"
	}
}

// participantSet restricts addresses to known contacts and returns them sorted.
// Unusable entries are ignored one by one.
func participantSet(addresses []string, known map[string]struct{}) []string {
	set := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		a = identity.NormalizeEmail(a)
		if !identity.IsAddress(a) {
			continue
		}
		if _, ok := known[a]; ok {
			set[a] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func addPairs(edges map[string]*edgeAccumulator, participants []string, description string) {
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			key := participants[i] + edgeKeySep + participants[j]
			acc, ok := edges[key]
			if !ok {
				acc = &edgeAccumulator{}
				edges[key] = acc
			}
			acc.weight++
			acc.interactions = append(acc.interactions, description)
		}
	}
}

func collectEdges(edges map[string]*edgeAccumulator) []domain.NetworkEdge {
	out := make([]domain.NetworkEdge, 0, len(edges))
	for key, acc := range edges {
		source, target, _ := strings.Cut(key, edgeKeySep)
		label := fmt.Sprintf("%d interaction", acc.weight)
		if acc.weight > 1 {
			label += "s"
		}
		out = append(out, domain.NetworkEdge{
			ID:           key,
			Source:       source,
			Target:       target,
			Weight:       acc.weight,
			Label:        label,
			Interactions: acc.interactions,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
