package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCourseRow(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	row, err := decodeCourseRow(
		map[string]any{"slug": "neo4j-fundamentals", "title": "Neo4j Fundamentals", "publishedOn": dbtype.Date(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC))},
		map[string]any{"completed": false, "createdAt": created, "completedAt": nil},
		[]any{
			map[string]any{
				"key":       "neo4j-fundamentals/graph-thinking",
				"slug":      "graph-thinking",
				"title":     "Graph Thinking",
				"completed": true,
				"lessons": []any{
					map[string]any{
						"key":       "neo4j-fundamentals/graph-thinking/property-graph",
						"slug":      "property-graph",
						"title":     "The Property Graph Model",
						"completed": true,
						"previous":  map[string]any{"moduleSlug": "graph-thinking", "slug": "what-is-a-graph", "title": "What is a Graph?"},
						"next":      map[string]any{"moduleSlug": "cypher-basics", "slug": "reading-data", "title": "Reading Data"},
						"questions": []any{map[string]any{"id": "q-1", "slug": "graph-elements"}},
					},
				},
			},
		},
	)
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, "neo4j-fundamentals", row.Slug())
	assert.IsType(t, time.Time{}, row.Properties["publishedOn"])
	require.NotNil(t, row.Enrolment)
	assert.False(t, row.Enrolment.Completed)
	require.NotNil(t, row.Enrolment.CreatedAt)
	assert.Equal(t, time.UTC, row.Enrolment.CreatedAt.Location())
	assert.True(t, created.Equal(*row.Enrolment.CreatedAt))
	assert.Nil(t, row.Enrolment.CompletedAt)

	require.Len(t, row.Modules, 1)
	m := row.Modules[0]
	assert.True(t, m.Completed)
	assert.NotContains(t, m.Properties, "lessons")
	assert.NotContains(t, m.Properties, "completed")

	require.Len(t, m.Lessons, 1)
	l := m.Lessons[0]
	assert.Equal(t, "property-graph", l.Slug())
	assert.Equal(t, "cypher-basics", l.Next.ModuleSlug)
	assert.Equal(t, "what-is-a-graph", l.Previous.Slug)
	assert.Len(t, l.Questions, 1)
	assert.NotContains(t, l.Properties, "next")
}

func TestDecodeCourseRowWithoutEnrolment(t *testing.T) {
	row, err := decodeCourseRow(map[string]any{"slug": "c"}, nil, []any{})
	require.NoError(t, err)
	assert.Nil(t, row.Enrolment)
	assert.Empty(t, row.Modules)
}

func TestDecodeNullCourse(t *testing.T) {
	row, err := decodeCourseRow(nil, nil, []any{})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestDecodeRejectsBadTimestamp(t *testing.T) {
	_, err := decodeCourseRow(map[string]any{"slug": "c"}, map[string]any{"completed": true, "completedAt": "yesterday"}, nil)
	require.Error(t, err)
}

func TestTimestampFormats(t *testing.T) {
	ldt := dbtype.LocalDateTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	got, err := timestamp(ldt)
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	got, err = timestamp("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Hour())

	got, err = timestamp("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = timestamp(42)
	require.Error(t, err)
}

func TestDecodeUser(t *testing.T) {
	u := decodeUser(map[string]any{"id": "u-1", "name": "Ada Lovelace", "givenName": "Ada"})
	require.NotNil(t, u)
	assert.Equal(t, "Ada", u.GivenName)
	assert.Nil(t, decodeUser(nil))
}

func TestDecodeCourseRowDropsSeedKeys(t *testing.T) {
	row, err := decodeCourseRow(
		map[string]any{"slug": "c"},
		nil,
		[]any{map[string]any{
			"key":  "c/m",
			"slug": "m",
			"lessons": []any{
				map[string]any{"key": "c/m/a", "slug": "a", "difficulty": "easy"},
			},
		}},
	)
	require.NoError(t, err)
	require.Len(t, row.Modules, 1)
	assert.NotContains(t, row.Modules[0].Properties, seedKeyProp)
	require.Len(t, row.Modules[0].Lessons, 1)
	assert.NotContains(t, row.Modules[0].Lessons[0].Properties, seedKeyProp)
	assert.Equal(t, "easy", row.Modules[0].Lessons[0].Properties["difficulty"])
}
