package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/exson6969/xplorer/pkg/repo"
)

// ReviewRepo gives moderation tooling CRUD access to review nodes by id.
type ReviewRepo = repo.Neo4jRepo[Review, string]

// NewReviewRepo creates a repository over Review nodes. Deletes detach the
// HAS_REVIEW edge along with the node.
func NewReviewRepo(driver neo4j.DriverWithContext) *ReviewRepo {
	return repo.NewNeo4jRepo[Review, string](
		driver,
		"Review",
		reviewProps,
		reviewFromRecord,
		repo.WithIDKey[Review, string]("review_id"),
		repo.WithDetachDelete[Review, string](),
	)
}

func reviewProps(r Review) map[string]any {
	return map[string]any{
		"review_id": r.ID,
		"entity":    r.Entity,
		"author":    r.Author,
		"rating":    r.Rating,
		"text":      r.Text,
	}
}

func reviewFromRecord(rec *neo4j.Record) (Review, error) {
	if len(rec.Values) == 0 {
		return Review{}, fmt.Errorf("graph: empty review record")
	}
	props := nodeProps(rec.Values[0])
	if props == nil {
		return Review{}, fmt.Errorf("graph: review record is not a node")
	}
	return Review{
		ID:     strProp(props, "review_id"),
		Entity: strProp(props, "entity"),
		Author: strProp(props, "author"),
		Rating: floatProp(props, "rating"),
		Text:   strProp(props, "text"),
	}, nil
}
