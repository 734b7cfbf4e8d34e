package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCaseInsensitive(t *testing.T) {
	rules := []*KnownErrorRule{
		{Name: "encoding", Pattern: "codec can't decode"},
	}

	assert.NotNil(t, Match(rules, "CODEC CAN'T DECODE byte 0xff"))
	assert.Nil(t, Match(rules, "something else entirely"))
}

func TestMatchFirstRuleWins(t *testing.T) {
	rules := []*KnownErrorRule{
		{Name: "specific", Pattern: "No columns detected"},
		{Name: "broad", Pattern: "No"},
	}

	got := Match(rules, "No columns detected")

	require.NotNil(t, got)
	assert.Equal(t, "specific", got.Name)
}

func TestMatchSkipsInvalidPattern(t *testing.T) {
	rules := []*KnownErrorRule{
		{Name: "broken", Pattern: "([unclosed"},
		{Name: "valid", Pattern: "File not found"},
	}

	got := Match(rules, "File not found: /tmp/x.csv")

	require.NotNil(t, got)
	assert.Equal(t, "valid", got.Name)
}

func TestRepositoryOrdersByRecency(t *testing.T) {
	repo := NewMemoryRuleRepository()
	older, err := repo.GetOrCreate("first", KnownErrorRule{Name: "first"})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = repo.GetOrCreate("second", KnownErrorRule{Name: "second"})
	require.NoError(t, err)

	rules, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "second", rules[0].Name)
	assert.Equal(t, "first", rules[1].Name)

	// Touching a rule moves it to the front of the scan order.
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, repo.Update(older))
	rules, err = repo.ListActive()
	require.NoError(t, err)
	assert.Equal(t, "first", rules[0].Name)
}

func TestRepositoryGetOrCreateIdempotent(t *testing.T) {
	repo := NewMemoryRuleRepository()
	first, err := repo.GetOrCreate("p", KnownErrorRule{Name: "one"})
	require.NoError(t, err)
	second, err := repo.GetOrCreate("p", KnownErrorRule{Name: "two"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "one", second.Name)
}

func TestSeedDefaults(t *testing.T) {
	repo := NewMemoryRuleRepository()
	require.NoError(t, SeedDefaults(repo))
	require.NoError(t, SeedDefaults(repo), "seeding twice is safe")

	rules, err := repo.ListActive()
	require.NoError(t, err)
	assert.Len(t, rules, len(defaultRules))

	matched := Match(rules, "standardize failed: Unsupported file type: .docx")
	require.NotNil(t, matched)
	assert.Equal(t, "Unsupported file type", matched.Name)

	matched = Match(rules, "read failed: Resource temporarily unavailable")
	require.NotNil(t, matched)
	require.NotNil(t, matched.Fix.AutoRetry)
	assert.True(t, matched.Fix.AutoRetry.Enabled)
	assert.Equal(t, 2, matched.Fix.AutoRetry.Max)
	assert.Equal(t, 45, matched.Fix.AutoRetry.DelaySeconds)
}
