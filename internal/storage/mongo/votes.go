package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/thinkedin/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetVote сохраняет голос псевдонима (upsert по _id = pseudonym).
func (m *Mongo) SetVote(ctx context.Context, vote models.Vote) error {
	const op = "storage/mongo/SetVote"

	_, err := m.votes.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: vote.Pseudonym}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "choice", Value: string(vote.Choice)},
			{Key: "updated_at", Value: toMS(time.Now())},
		}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VoteTally агрегирует голоса по вариантам ответа.
func (m *Mongo) VoteTally(ctx context.Context) (*models.VoteTally, error) {
	const op = "storage/mongo/VoteTally"

	pipeline := bson.A{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$choice"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := m.votes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%s: aggregate: %w", op, err)
	}
	defer cur.Close(ctx)

	var out models.VoteTally
	for cur.Next(ctx) {
		var row struct {
			Choice string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		switch models.VoteChoice(row.Choice) {
		case models.VoteWant:
			out.Want = row.N
		case models.VoteDont:
			out.Dont = row.N
		}
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return &out, nil
}
