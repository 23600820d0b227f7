// Package mongo implements store.Store on MongoDB using the official v2
// driver.
//
// Insertion order is tracked with per-collection sequence numbers drawn
// from a counters collection. Transact runs inside a session transaction,
// which needs a replica set or sharded cluster. The driver retries a unit
// of work on transient conflicts, so the function handed to Transact may
// run more than once.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/heroes"
	"github.com/xraph/heroes/hero"
	"github.com/xraph/heroes/id"
	"github.com/xraph/heroes/referral"
	"github.com/xraph/heroes/stats"
	herostore "github.com/xraph/heroes/store"
	"github.com/xraph/heroes/tradein"
)

// Collection name constants.
const (
	colHeroes    = "heroes"
	colTradeIns  = "heroes_tradeins"
	colReferrals = "heroes_referrals"
	colStats     = "heroes_stats"
	colCounters  = "heroes_counters"
)

// compile-time interface check
var _ herostore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	inTx   bool
}

// New creates a MongoDB store over an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{client: db.Client(), db: db}
}

// Open connects to uri and selects database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("heroes/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("heroes/mongo: ping: %w", err)
	}
	return New(client.Database(database)), nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all heroes collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("heroes/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client. It is a no-op on a transaction handle.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// ==================== Hero Store ====================

func (s *Store) CreateHero(ctx context.Context, h *hero.Hero) error {
	seq, err := s.nextSeq(ctx, colHeroes)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(colHeroes).InsertOne(ctx, toHeroModel(h, seq)); err != nil {
		return wrapWrite("create hero", err)
	}
	return nil
}

func (s *Store) GetHero(ctx context.Context, heroID id.HeroID) (*hero.Hero, error) {
	var m heroModel
	err := s.db.Collection(colHeroes).FindOne(ctx, bson.M{"_id": heroID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, heroes.ErrHeroNotFound
		}
		return nil, fmt.Errorf("heroes/mongo: get hero: %w", err)
	}
	return fromHeroModel(&m)
}

// GetHeroByEmail returns the earliest registration with this exact email.
func (s *Store) GetHeroByEmail(ctx context.Context, email string) (*hero.Hero, error) {
	var m heroModel
	err := s.db.Collection(colHeroes).FindOne(ctx,
		bson.M{"email": email},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: 1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, heroes.ErrHeroNotFound
		}
		return nil, fmt.Errorf("heroes/mongo: get hero by email: %w", err)
	}
	return fromHeroModel(&m)
}

func (s *Store) ListHeroes(ctx context.Context, opts hero.ListOpts) ([]*hero.Hero, error) {
	filter := bson.M{}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	sort := bson.D{{Key: "seq", Value: 1}}
	if opts.ByPoints {
		sort = bson.D{{Key: "points", Value: -1}, {Key: "seq", Value: 1}}
	}
	findOpts := options.Find().SetSort(sort)
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colHeroes).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("heroes/mongo: list heroes: %w", err)
	}
	var models []heroModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("heroes/mongo: list heroes: %w", err)
	}

	result := make([]*hero.Hero, 0, len(models))
	for i := range models {
		h, err := fromHeroModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, nil
}

func (s *Store) UpdateHero(ctx context.Context, h *hero.Hero) error {
	res, err := s.db.Collection(colHeroes).UpdateOne(ctx,
		bson.M{"_id": h.ID.String()},
		bson.M{"$set": bson.M{
			"email":             h.Email,
			"name":              h.Name,
			"device_model":      h.DeviceModel,
			"device_condition":  h.DeviceCondition,
			"trade_value":       h.TradeValue,
			"points":            h.Points,
			"level":             string(h.Level),
			"badges":            nonNil(h.Badges),
			"bottles_prevented": h.BottlesPrevented,
			"co2_saved":         h.CO2Saved,
			"rewards_earned":    h.RewardsEarned,
			"referral_count":    h.ReferralCount,
			"is_active":         h.IsActive,
			"updated_at":        h.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("heroes/mongo: update hero: %w", err)
	}
	if res.MatchedCount == 0 {
		return heroes.ErrHeroNotFound
	}
	return nil
}

// ==================== Trade-in Store ====================

func (s *Store) CreateTradeIn(ctx context.Context, t *tradein.TradeIn) error {
	seq, err := s.nextSeq(ctx, colTradeIns)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(colTradeIns).InsertOne(ctx, toTradeInModel(t, seq)); err != nil {
		return wrapWrite("create trade-in", err)
	}
	return nil
}

func (s *Store) GetTradeIn(ctx context.Context, tradeInID id.TradeInID) (*tradein.TradeIn, error) {
	var m tradeInModel
	err := s.db.Collection(colTradeIns).FindOne(ctx, bson.M{"_id": tradeInID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, heroes.ErrTradeInNotFound
		}
		return nil, fmt.Errorf("heroes/mongo: get trade-in: %w", err)
	}
	return fromTradeInModel(&m)
}

// ListTradeInsByHero returns newest first.
func (s *Store) ListTradeInsByHero(ctx context.Context, heroID id.HeroID) ([]*tradein.TradeIn, error) {
	cur, err := s.db.Collection(colTradeIns).Find(ctx,
		bson.M{"hero_id": heroID.String()},
		options.Find().SetSort(bson.D{{Key: "seq", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("heroes/mongo: list trade-ins: %w", err)
	}
	var models []tradeInModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("heroes/mongo: list trade-ins: %w", err)
	}

	result := make([]*tradein.TradeIn, 0, len(models))
	for i := range models {
		t, err := fromTradeInModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (s *Store) UpdateTradeIn(ctx context.Context, t *tradein.TradeIn) error {
	set := bson.M{
		"device_model":     t.DeviceModel,
		"device_condition": t.DeviceCondition,
		"trade_value":      t.TradeValue,
		"status":           string(t.Status),
		"pickup_address":   t.PickupAddress,
		"updated_at":       t.UpdatedAt,
	}
	unset := bson.M{}
	if t.PickupDate != nil {
		set["pickup_date"] = *t.PickupDate
	} else {
		unset["pickup_date"] = ""
	}
	if t.CompletedAt != nil {
		set["completed_at"] = *t.CompletedAt
	} else {
		unset["completed_at"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.db.Collection(colTradeIns).UpdateOne(ctx, bson.M{"_id": t.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("heroes/mongo: update trade-in: %w", err)
	}
	if res.MatchedCount == 0 {
		return heroes.ErrTradeInNotFound
	}
	return nil
}

// ==================== Referral Store ====================

func (s *Store) CreateReferral(ctx context.Context, r *referral.Referral) error {
	seq, err := s.nextSeq(ctx, colReferrals)
	if err != nil {
		return err
	}
	if _, err := s.db.Collection(colReferrals).InsertOne(ctx, toReferralModel(r, seq)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return heroes.ErrAlreadyReferred
		}
		return wrapWrite("create referral", err)
	}
	return nil
}

// ListReferralsByReferrer returns newest first.
func (s *Store) ListReferralsByReferrer(ctx context.Context, referrerID id.HeroID) ([]*referral.Referral, error) {
	cur, err := s.db.Collection(colReferrals).Find(ctx,
		bson.M{"referrer_id": referrerID.String()},
		options.Find().SetSort(bson.D{{Key: "seq", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("heroes/mongo: list referrals: %w", err)
	}
	var models []referralModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("heroes/mongo: list referrals: %w", err)
	}

	result := make([]*referral.Referral, 0, len(models))
	for i := range models {
		r, err := fromReferralModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) GetReferralByReferee(ctx context.Context, refereeID id.HeroID) (*referral.Referral, error) {
	var m referralModel
	err := s.db.Collection(colReferrals).FindOne(ctx, bson.M{"referee_id": refereeID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, heroes.ErrReferralNotFound
		}
		return nil, fmt.Errorf("heroes/mongo: get referral: %w", err)
	}
	return fromReferralModel(&m)
}

// ==================== Stats Store ====================

func (s *Store) GetStats(ctx context.Context) (*stats.ProgramStats, error) {
	var m statsModel
	err := s.db.Collection(colStats).FindOne(ctx, bson.M{"_id": statsDocID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, heroes.ErrStatsNotFound
		}
		return nil, fmt.Errorf("heroes/mongo: get stats: %w", err)
	}
	return fromStatsModel(&m), nil
}

func (s *Store) SaveStats(ctx context.Context, ps *stats.ProgramStats) error {
	_, err := s.db.Collection(colStats).ReplaceOne(ctx,
		bson.M{"_id": statsDocID},
		toStatsModel(ps),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("heroes/mongo: save stats: %w", err)
	}
	return nil
}

// ==================== Unit of work ====================

// Transact runs fn inside a session transaction. Calling Transact on the
// transaction store joins it.
func (s *Store) Transact(ctx context.Context, fn herostore.TxFunc) error {
	if s.inTx {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: start session: %w", heroes.ErrTransactionFailed, err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txStore := &Store{client: s.client, db: s.db, inTx: true}
	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc, txStore)
	})
	return err
}

// ==================== Helpers ====================

// nextSeq draws the next insertion sequence number for a collection.
func (s *Store) nextSeq(ctx context.Context, col string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": col},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("heroes/mongo: next %s sequence: %w", col, err)
	}
	return counter.Seq, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func wrapWrite(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return heroes.ErrAlreadyExists
	}
	return fmt.Errorf("heroes/mongo: %s: %w", op, err)
}

func nonNil(badges []string) []string {
	if badges == nil {
		return []string{}
	}
	return badges
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colHeroes: {
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "points", Value: -1}, {Key: "seq", Value: 1}}},
		},
		colTradeIns: {
			{Keys: bson.D{{Key: "hero_id", Value: 1}, {Key: "seq", Value: -1}}},
		},
		colReferrals: {
			{Keys: bson.D{{Key: "referee_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "seq", Value: -1}}},
		},
	}
}
