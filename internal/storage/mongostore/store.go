// Package mongostore is the MongoDB ledger backend. Balance changes use $inc and
// units of work run in a session transaction, so the server must be a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/core"
	"finboard/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection     = "accounts"
	categoriesCollection   = "categories"
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
)

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// TxRunner runs fn inside a multi-document transaction. fn receives a context
// carrying the session and may be retried on transient errors.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(sessCtx context.Context) error) error
}

type clientTxRunner struct {
	client *mongo.Client
}

func (r clientTxRunner) RunTx(ctx context.Context, fn func(context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

type Store struct {
	client       *mongo.Client
	accounts     Collection
	categories   Collection
	transactions Collection
	budgets      Collection
	tx           TxRunner
}

var _ storage.Store = (*Store)(nil)

// Collections groups the collections a Store works on.
type Collections struct {
	Accounts     Collection
	Categories   Collection
	Transactions Collection
	Budgets      Collection
}

// NewStore builds a Store over arbitrary collections; Open wires real ones.
func NewStore(c Collections, tx TxRunner) *Store {
	return &Store{
		accounts:     c.Accounts,
		categories:   c.Categories,
		transactions: c.Transactions,
		budgets:      c.Budgets,
		tx:           tx,
	}
}

// Open connects to uri, pings the server and ensures the ledger indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	slog.DebugContext(ctx, "Attempting to connect to MongoDB", "database", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(database)
	if err := ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s := NewStore(Collections{
		Accounts:     db.Collection(accountsCollection),
		Categories:   db.Collection(categoriesCollection),
		Transactions: db.Collection(transactionsCollection),
		Budgets:      db.Collection(budgetsCollection),
	}, clientTxRunner{client: client})
	s.client = client

	slog.InfoContext(ctx, "Successfully established connection to MongoDB", "database", database)
	return s, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		accountsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "name", Value: 1}, {Key: "kind", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "type", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "accountId", Value: 1}}},
			{Keys: bson.D{{Key: "transferAccountId", Value: 1}}},
		},
		budgetsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "active", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// WithinTx runs fn in a session transaction. Ledger calls made through the
// argument join the session whatever context the caller passes them.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Ledger) error) error {
	return s.tx.RunTx(ctx, func(sessCtx context.Context) error {
		return fn(txLedger{s: s, sessCtx: sessCtx})
	})
}

type txLedger struct {
	s       *Store
	sessCtx context.Context
}

func (l txLedger) bind(ctx context.Context) context.Context {
	if sess := mongo.SessionFromContext(l.sessCtx); sess != nil {
		return mongo.NewSessionContext(ctx, sess)
	}
	return ctx
}

func (l txLedger) GetAccount(ctx context.Context, id, ownerID string) (core.Account, error) {
	return l.s.GetAccount(l.bind(ctx), id, ownerID)
}

func (l txLedger) ApplyAccountDelta(ctx context.Context, id, ownerID string, delta core.Money) error {
	return l.s.ApplyAccountDelta(l.bind(ctx), id, ownerID, delta)
}

func (l txLedger) GetCategory(ctx context.Context, id, ownerID string) (core.Category, error) {
	return l.s.GetCategory(l.bind(ctx), id, ownerID)
}

func (l txLedger) GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	return l.s.GetTransaction(l.bind(ctx), id, ownerID)
}

func (l txLedger) InsertTransaction(ctx context.Context, t core.Transaction) error {
	return l.s.InsertTransaction(l.bind(ctx), t)
}

func (l txLedger) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return l.s.UpdateTransaction(l.bind(ctx), t)
}

func (l txLedger) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	return l.s.DeleteTransaction(l.bind(ctx), id, ownerID)
}

func byOwner(id, ownerID string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "ownerId", Value: ownerID}}
}

func findOne[T any](ctx context.Context, c Collection, filter bson.D, notFound error) (T, error) {
	var doc T
	err := c.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, notFound
	}
	return doc, err
}

func findAll[T any](ctx context.Context, c Collection, filter bson.D, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) GetAccount(ctx context.Context, id, ownerID string) (core.Account, error) {
	doc, err := findOne[accountDoc](ctx, s.accounts, byOwner(id, ownerID), core.ErrAccountNotFound)
	if err != nil {
		return core.Account{}, wrap("get account", err)
	}
	return doc.toCore(), nil
}

func (s *Store) ApplyAccountDelta(ctx context.Context, id, ownerID string, delta core.Money) error {
	res, err := s.accounts.UpdateOne(ctx, byOwner(id, ownerID),
		bson.D{{Key: "$inc", Value: bson.D{{Key: "balanceCents", Value: delta.Cents}}}})
	if err != nil {
		return fmt.Errorf("apply account delta: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id, ownerID string) (core.Category, error) {
	doc, err := findOne[categoryDoc](ctx, s.categories, byOwner(id, ownerID), core.ErrCategoryNotFound)
	if err != nil {
		return core.Category{}, wrap("get category", err)
	}
	return doc.toCore(), nil
}

func (s *Store) GetTransaction(ctx context.Context, id, ownerID string) (core.Transaction, error) {
	doc, err := findOne[transactionDoc](ctx, s.transactions, byOwner(id, ownerID), core.ErrTransactionNotFound)
	if err != nil {
		return core.Transaction{}, wrap("get transaction", err)
	}
	return doc.toCore(), nil
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := s.transactions.InsertOne(ctx, fromCoreTransaction(t)); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := s.transactions.ReplaceOne(ctx, byOwner(t.ID, t.OwnerID), fromCoreTransaction(t))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id, ownerID string) error {
	res, err := s.transactions.DeleteOne(ctx, byOwner(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) SumExpenses(ctx context.Context, ownerID, categoryID string, r core.DateRange) (core.ExpenseSum, error) {
	match := bson.D{
		{Key: "ownerId", Value: ownerID},
		{Key: "type", Value: string(core.Expense)},
		{Key: "date", Value: bson.D{{Key: "$gte", Value: r.Start}, {Key: "$lte", Value: r.End}}},
	}
	if categoryID != "" {
		match = append(match, bson.E{Key: "categoryId", Value: categoryID})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amountCents"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return core.ExpenseSum{}, fmt.Errorf("sum expenses: %w", err)
	}
	var rows []struct {
		Total int64 `bson:"total"`
		Count int   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return core.ExpenseSum{}, fmt.Errorf("decode expense sum: %w", err)
	}
	if len(rows) == 0 {
		return core.ExpenseSum{}, nil
	}
	return core.ExpenseSum{Total: core.Money{Cents: rows[0].Total}, Count: rows[0].Count}, nil
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) error {
	if _, err := s.accounts.InsertOne(ctx, fromCoreAccount(a)); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	docs, err := findAll[accountDoc](ctx, s.accounts, bson.D{{Key: "ownerId", Value: ownerID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id, ownerID string) error {
	return s.tx.RunTx(ctx, func(sc context.Context) error {
		refs, err := s.transactions.CountDocuments(sc, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "accountId", Value: id}},
			bson.D{{Key: "transferAccountId", Value: id}},
		}}})
		if err != nil {
			return fmt.Errorf("count account transactions: %w", err)
		}
		if refs > 0 {
			return core.ErrAccountInUse
		}
		res, err := s.accounts.DeleteOne(sc, byOwner(id, ownerID))
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if res.DeletedCount == 0 {
			return core.ErrAccountNotFound
		}
		return nil
	})
}

func (s *Store) NetWorth(ctx context.Context, ownerID string) ([]core.NetWorth, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "ownerId", Value: ownerID}, {Key: "includeInNetWorth", Value: true}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$currency"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$balanceCents"}}},
			{Key: "accounts", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := s.accounts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("net worth: %w", err)
	}
	var rows []struct {
		Currency string `bson:"_id"`
		Total    int64  `bson:"total"`
		Accounts int    `bson:"accounts"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode net worth: %w", err)
	}
	out := make([]core.NetWorth, len(rows))
	for i, r := range rows {
		out[i] = core.NetWorth{Currency: r.Currency, Total: core.Money{Cents: r.Total}, Accounts: r.Accounts}
	}
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) error {
	if _, err := s.categories.InsertOne(ctx, fromCoreCategory(c)); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	docs, err := findAll[categoryDoc](ctx, s.categories, bson.D{{Key: "ownerId", Value: ownerID}},
		options.Find().SetSort(bson.D{{Key: "kind", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error) {
	filter := bson.D{{Key: "ownerId", Value: ownerID}}
	if f.AccountID != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "accountId", Value: f.AccountID}},
			bson.D{{Key: "transferAccountId", Value: f.AccountID}},
		}})
	}
	if f.CategoryID != "" {
		filter = append(filter, bson.E{Key: "categoryId", Value: f.CategoryID})
	}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "type", Value: string(f.Type)})
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		dates := bson.D{}
		if !f.From.IsZero() {
			dates = append(dates, bson.E{Key: "$gte", Value: f.From})
		}
		if !f.To.IsZero() {
			dates = append(dates, bson.E{Key: "$lte", Value: f.To})
		}
		filter = append(filter, bson.E{Key: "date", Value: dates})
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	docs, err := findAll[transactionDoc](ctx, s.transactions, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) error {
	if _, err := s.budgets.InsertOne(ctx, fromCoreBudget(b)); err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (s *Store) GetBudget(ctx context.Context, id, ownerID string) (core.Budget, error) {
	doc, err := findOne[budgetDoc](ctx, s.budgets, byOwner(id, ownerID), core.ErrBudgetNotFound)
	if err != nil {
		return core.Budget{}, wrap("get budget", err)
	}
	return doc.toCore(), nil
}

func (s *Store) ListBudgets(ctx context.Context, ownerID string, activeOnly bool) ([]core.Budget, error) {
	filter := bson.D{{Key: "ownerId", Value: ownerID}}
	if activeOnly {
		filter = append(filter, bson.E{Key: "active", Value: true})
	}
	docs, err := findAll[budgetDoc](ctx, s.budgets, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := s.budgets.ReplaceOne(ctx, byOwner(b.ID, b.OwnerID), fromCoreBudget(b))
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id, ownerID string) error {
	res, err := s.budgets.DeleteOne(ctx, byOwner(id, ownerID))
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

// wrap leaves domain sentinels untouched so callers can match them directly.
func wrap(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
