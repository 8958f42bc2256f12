package usecase

import (
	"context"
	"testing"

	"kithbook-backend/internal/contact/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedScenario stores two contacts with three emails and one meeting each,
// sharing two emails and the meeting.
func seedScenario(f *fixture) {
	f.contacts.put(&domain.Contact{UserID: testUserID, Email: "a@x.com", InteractionCount: 1, LastInteractionAt: day(1)})
	f.contacts.put(&domain.Contact{UserID: testUserID, Email: "b@x.com", InteractionCount: 1, LastInteractionAt: day(1)})

	f.interactions.addEmail("a@x.com", []string{testUserEmail}, "a only", day(1))
	f.interactions.addEmail("a@x.com", []string{"b@x.com", testUserEmail}, "a to b", day(2))
	f.interactions.addEmail("b@x.com", []string{"a@x.com"}, "b to a", day(3))
	f.interactions.addEmail("b@x.com", []string{testUserEmail}, "b only", day(4))
	f.interactions.addEvent(testUserEmail, []string{"a@x.com", "b@x.com"}, "planning", day(5))
}

func TestRecalculateAllInteractionCounts_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedScenario(f)

	require.NoError(t, f.usecase.RecalculateAllInteractionCounts(ctx, testUserID))

	assert.Equal(t, 4, f.contacts.get(testUserID, "a@x.com").InteractionCount)
	assert.Equal(t, 4, f.contacts.get(testUserID, "b@x.com").InteractionCount)

	graph, err := f.graph.GetNetworkGraphData(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, graph.Edges, 1)
	edge := graph.Edges[0]
	assert.Equal(t, "a@x.com", edge.Source)
	assert.Equal(t, "b@x.com", edge.Target)
	assert.Equal(t, 3, edge.Weight)
	assert.Equal(t, "3 interactions", edge.Label)
}

func TestRecalculateAllInteractionCounts_SkipsArchived(t *testing.T) {
	f := newFixture(t)
	f.contacts.put(&domain.Contact{UserID: testUserID, Email: "gone@x.com", InteractionCount: 42, Archived: true, LastInteractionAt: day(1)})
	f.interactions.addEmail("gone@x.com", []string{testUserEmail}, "x", day(1))

	require.NoError(t, f.usecase.RecalculateAllInteractionCounts(context.Background(), testUserID))
	assert.Equal(t, 42, f.contacts.get(testUserID, "gone@x.com").InteractionCount)
}

func TestRecalculateAllInteractionCounts_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	seedScenario(f)
	f.contacts.put(&domain.Contact{UserID: testUserID, Email: "c@x.com", InteractionCount: 9, LastInteractionAt: day(1)})
	f.contacts.setCountErr["a@x.com"] = errStore

	err := f.usecase.RecalculateAllInteractionCounts(context.Background(), testUserID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStore)
	assert.Contains(t, err.Error(), "a@x.com")

	assert.Equal(t, 4, f.contacts.get(testUserID, "b@x.com").InteractionCount)
	assert.Equal(t, 0, f.contacts.get(testUserID, "c@x.com").InteractionCount)
}

func TestRecalculateAllInteractionCounts_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.contacts.findErr = errStore

	err := f.usecase.RecalculateAllInteractionCounts(context.Background(), testUserID)
	assert.ErrorIs(t, err, errStore)
}

func TestRecalculateAllInteractionCounts_IdempotentProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	addresses := []string{"a@x.com", "b@x.com", "c@x.com", testUserEmail}

	properties.Property("two passes yield identical counts", prop.ForAll(
		func(picks []int) bool {
			f := newFixture(t)
			for _, a := range addresses[:3] {
				f.contacts.put(&domain.Contact{UserID: testUserID, Email: a, InteractionCount: 1, LastInteractionAt: day(1)})
			}
			for i, p := range picks {
				from := addresses[p%len(addresses)]
				to := addresses[(p/len(addresses))%len(addresses)]
				if i%2 == 0 {
					f.interactions.addEmail(from, []string{to}, "s", day(1))
				} else {
					f.interactions.addEvent(from, []string{to}, "m", day(1))
				}
			}

			ctx := context.Background()
			if err := f.usecase.RecalculateAllInteractionCounts(ctx, testUserID); err != nil {
				return false
			}
			first := make(map[string]int)
			for _, a := range addresses[:3] {
				first[a] = f.contacts.get(testUserID, a).InteractionCount
			}
			if err := f.usecase.RecalculateAllInteractionCounts(ctx, testUserID); err != nil {
				return false
			}
			for _, a := range addresses[:3] {
				if f.contacts.get(testUserID, a).InteractionCount != first[a] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 15)),
	))

	properties.TestingRun(t)
}
