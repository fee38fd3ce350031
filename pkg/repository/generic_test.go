package repository_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/kaminari-anilist/kaminari/pkg/envelope"
	"github.com/kaminari-anilist/kaminari/pkg/repository"
	"github.com/kaminari-anilist/kaminari/pkg/repository/memory"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type anime struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Title    string             `bson:"title"`
	Genre    string             `bson:"genre"`
	Score    float64            `bson:"score"`
	Episodes int                `bson:"episodes"`
}

func (a anime) DocumentID() primitive.ObjectID { return a.ID }

var (
	animeTitle    = repository.NewField("title", func(a anime) string { return a.Title })
	animeGenre    = repository.NewField("genre", func(a anime) string { return a.Genre })
	animeScore    = repository.NewField("score", func(a anime) float64 { return a.Score })
	animeEpisodes = repository.NewField("episodes", func(a anime) int { return a.Episodes })
)

func newAnime(title, genre string, score float64, episodes int) anime {
	return anime{ID: primitive.NewObjectID(), Title: title, Genre: genre, Score: score, Episodes: episodes}
}

func catalog() []anime {
	return []anime{
		newAnime("Naruto", "action", 8.0, 220),
		newAnime("Monster", "thriller", 8.9, 74),
		newAnime("K-On!", "music", 7.9, 13),
		newAnime("Bleach", "action", 7.9, 366),
		newAnime("Mushishi", "slice of life", 8.7, 26),
	}
}

func newRepo(t *testing.T, docs []anime, opts ...repository.Option[anime]) *repository.Generic[anime] {
	t.Helper()
	opts = append([]repository.Option[anime]{repository.WithSortKeys(
		repository.FoldedKey(animeTitle),
		repository.OrderedKey(animeScore),
		repository.OrderedKey(animeEpisodes),
		repository.FoldedKey(animeGenre),
	)}, opts...)
	repo := repository.New[anime](memory.Open[anime](memory.NewStore(), "anime"), opts...)
	if len(docs) > 0 {
		if env := repo.InsertMany(context.Background(), docs); env.Outcome != envelope.Success {
			t.Fatalf("seed: %s", env.Detail)
		}
	}
	return repo
}

func titles(items []anime) string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.Title
	}
	return strings.Join(out, ",")
}

// stub is a Collection whose behavior is fixed per test.
type stub struct {
	err     error
	nilFind bool
	write   repository.WriteResult
}

func (s *stub) Name() string { return "stub" }

func (s *stub) Find(context.Context, repository.Filter[anime], repository.FindOptions[anime]) ([]anime, error) {
	if s.nilFind {
		return nil, nil
	}
	return []anime{}, s.err
}

func (s *stub) Count(context.Context, repository.Filter[anime]) (int64, error) { return 0, s.err }
func (s *stub) InsertOne(context.Context, anime) error                         { return s.err }
func (s *stub) InsertMany(context.Context, []anime) error                      { return s.err }

func (s *stub) ReplaceOne(context.Context, repository.Filter[anime], anime, bool) (repository.WriteResult, error) {
	return s.write, s.err
}

func (s *stub) UpdateOne(context.Context, repository.Filter[anime], bson.D) (repository.WriteResult, error) {
	return s.write, s.err
}

func (s *stub) FindOneAndDelete(context.Context, repository.Filter[anime]) (anime, bool, error) {
	return anime{}, false, s.err
}

func (s *stub) DeleteMany(context.Context, repository.Filter[anime]) (int64, error) { return 0, s.err }

func (s *stub) Aggregate(context.Context, mongo.Pipeline) ([]bson.M, error) {
	if s.nilFind {
		return nil, nil
	}
	return []bson.M{}, s.err
}

func (s *stub) ListIndexes(context.Context) ([]repository.IndexSpec, error) { return nil, s.err }
func (s *stub) CreateIndexes(context.Context, []mongo.IndexModel) ([]string, error) {
	return nil, s.err
}

func TestGetAll_Sorted(t *testing.T) {
	repo := newRepo(t, catalog())
	env := repo.GetAll(context.Background(), repository.Desc("score"), repository.Asc("title"))
	if env.Outcome != envelope.Success {
		t.Fatalf("unexpected outcome %s: %s", env.Outcome, env.Detail)
	}
	if got := titles(env.Items); got != "Monster,Mushishi,Naruto,Bleach,K-On!" {
		t.Fatalf("unexpected order %s", got)
	}
	if env.Origin != "anime.GetAll" {
		t.Fatalf("unexpected origin %q", env.Origin)
	}
}

func TestGetAll_Unsorted_KeepsInsertionOrder(t *testing.T) {
	repo := newRepo(t, catalog())
	env := repo.GetAll(context.Background())
	if got := titles(env.Items); got != "Naruto,Monster,K-On!,Bleach,Mushishi" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestFilterBy(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, catalog())

	t.Run("typed predicate", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.Eq(animeGenre, "action"), repository.WithSort(repository.Asc("title")))
		if got := titles(env.Items); got != "Bleach,Naruto" {
			t.Fatalf("unexpected items %s", got)
		}
	})

	t.Run("go predicate", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.Match(func(a anime) bool { return strings.HasPrefix(a.Title, "M") }),
			repository.WithSort(repository.Desc("episodes")))
		if got := titles(env.Items); got != "Monster,Mushishi" {
			t.Fatalf("unexpected items %s", got)
		}
	})

	t.Run("no match is an empty success", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.Eq(animeGenre, "mecha"))
		if env.Outcome != envelope.Success || env.Items == nil || len(env.Items) != 0 {
			t.Fatalf("expected empty success, got %+v", env)
		}
	})

	t.Run("paging after sorting", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.All[anime](),
			repository.WithSort(repository.Asc("episodes")), repository.WithPage(repository.Page(2, 2)))
		if got := titles(env.Items); got != "Monster,Naruto" {
			t.Fatalf("unexpected page %s", got)
		}
	})

	t.Run("page past the end", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.All[anime](), repository.WithPage(repository.Page(9, 2)))
		if env.Outcome != envelope.Success || len(env.Items) != 0 {
			t.Fatalf("expected empty success, got %+v", env)
		}
	})

	t.Run("page offset beyond int range", func(t *testing.T) {
		for _, page := range []repository.PageOption{repository.Page(3, math.MaxInt), repository.Page(math.MaxInt, 2)} {
			env := repo.FilterBy(ctx, repository.All[anime](), repository.WithPage(page))
			if env.Outcome != envelope.Success || len(env.Items) != 0 {
				t.Fatalf("page %+v: expected empty success, got %s %s", page, env.Outcome, titles(env.Items))
			}
			env = repo.FilterByFromStore(ctx, repository.All[anime](), nil, &page)
			if env.Outcome != envelope.Success || len(env.Items) != 0 {
				t.Fatalf("page %+v from store: expected empty success, got %s %s", page, env.Outcome, titles(env.Items))
			}
		}
	})

	t.Run("unknown sort field", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.All[anime](), repository.WithSort(repository.Asc("password")))
		if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrUnknownSortField) {
			t.Fatalf("expected unknown sort field error, got %+v", env)
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		env := repo.FilterBy(ctx, repository.All[anime](), repository.WithPage(repository.Page(0, 10)))
		if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrInvalidPage) {
			t.Fatalf("expected invalid page error, got %+v", env)
		}
	})
}

func TestFilterByAll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, catalog())

	env := repo.FilterByAll(ctx, []repository.Filter[anime]{
		repository.Gte(animeScore, 7.9),
		repository.Lt(animeEpisodes, 100),
		repository.Ne(animeGenre, "music"),
	}, repository.WithSort(repository.Asc("title")))
	if got := titles(env.Items); got != "Monster,Mushishi" {
		t.Fatalf("unexpected items %s", got)
	}

	env = repo.FilterByAll(ctx, nil)
	if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrNoPredicates) {
		t.Fatalf("expected no predicates error, got %+v", env)
	}
}

func TestFilterByNative(t *testing.T) {
	repo := newRepo(t, catalog())
	env := repo.FilterByNative(context.Background(),
		bson.D{{Key: "genre", Value: bson.D{{Key: "$in", Value: bson.A{"music", "thriller"}}}}},
		repository.WithSort(repository.Asc("title")))
	if got := titles(env.Items); got != "K-On!,Monster" {
		t.Fatalf("unexpected items %s", got)
	}
}

func TestFilterByFromStore(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, catalog())
	page := repository.Page(1, 3)
	env := repo.FilterByFromStore(ctx, repository.In(animeGenre, "action", "thriller", "music"),
		[]repository.SortOption{repository.Asc("score"), repository.Desc("title")}, &page)
	if got := titles(env.Items); got != "K-On!,Bleach,Naruto" {
		t.Fatalf("unexpected items %s", got)
	}

	env = repo.FilterByFromStore(ctx, repository.All[anime](), []repository.SortOption{repository.Asc("nope")}, nil)
	if env.Outcome != envelope.Error {
		t.Fatalf("expected error for unknown sort field, got %s", env.Outcome)
	}
}

// findRecorder keeps the options of the last Find call.
type findRecorder struct {
	stub
	opts repository.FindOptions[anime]
}

func (r *findRecorder) Find(_ context.Context, _ repository.Filter[anime], opts repository.FindOptions[anime]) ([]anime, error) {
	r.opts = opts
	return []anime{}, nil
}

func TestFilterByFromStore_NativeOrder(t *testing.T) {
	tests := []struct {
		name       string
		sorts      []repository.SortOption
		wantNative bson.D
	}{
		{
			name:       "ordered keys sort in the store",
			sorts:      []repository.SortOption{repository.Desc("score"), repository.Asc("episodes")},
			wantNative: bson.D{{Key: "score", Value: -1}, {Key: "episodes", Value: 1}},
		},
		{
			name:  "case-insensitive key sorts in process",
			sorts: []repository.SortOption{repository.Desc("score"), repository.Asc("title")},
		},
		{
			name:  "case-insensitive primary key sorts in process",
			sorts: []repository.SortOption{repository.Asc("genre")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &findRecorder{}
			repo := repository.New[anime](rec, repository.WithSortKeys(
				repository.FoldedKey(animeTitle),
				repository.OrderedKey(animeScore),
				repository.OrderedKey(animeEpisodes),
				repository.FoldedKey(animeGenre),
			))
			env := repo.FilterByFromStore(context.Background(), repository.All[anime](), tt.sorts, nil)
			if env.Outcome != envelope.Success {
				t.Fatalf("unexpected outcome %s: %s", env.Outcome, env.Detail)
			}
			if rec.opts.Compare == nil {
				t.Fatal("expected an in-process comparator")
			}
			if !reflect.DeepEqual(rec.opts.Sort, tt.wantNative) {
				t.Fatalf("native sort = %v, want %v", rec.opts.Sort, tt.wantNative)
			}
		})
	}
}

func TestFilterByFromStore_MixedCaseMatchesFilterBy(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, []anime{
		newAnime("Zeta", "mecha", 7, 50),
		newAnime("alpha", "mecha", 7, 12),
		newAnime("Beta", "mecha", 7, 24),
	})
	sorts := []repository.SortOption{repository.Asc("title")}
	page := repository.Page(1, 2)

	inMemory := repo.FilterBy(ctx, repository.All[anime](), repository.WithSort(sorts...), repository.WithPage(page))
	fromStore := repo.FilterByFromStore(ctx, repository.All[anime](), sorts, &page)
	if got := titles(inMemory.Items); got != "alpha,Beta" {
		t.Fatalf("FilterBy order %s", got)
	}
	if got := titles(fromStore.Items); got != titles(inMemory.Items) {
		t.Fatalf("FilterByFromStore order %s differs from FilterBy", got)
	}
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	docs := catalog()
	repo := newRepo(t, docs)

	env := repo.GetByID(ctx, docs[1].ID.Hex())
	if env.Outcome != envelope.Success || len(env.Items) != 1 || env.Items[0].Title != "Monster" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	env = repo.GetByID(ctx, primitive.NewObjectID().Hex())
	if env.Outcome != envelope.Warning || env.Items != nil {
		t.Fatalf("expected warning with absent items, got %+v", env)
	}

	for _, id := range []string{"", "123", "zzzzzzzzzzzzzzzzzzzzzzzz", docs[0].ID.Hex() + "0"} {
		env = repo.GetByID(ctx, id)
		if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrMalformedID) {
			t.Fatalf("id %q: expected malformed id error, got %+v", id, env)
		}
	}
}

func TestCount(t *testing.T) {
	repo := newRepo(t, catalog())
	env := repo.Count(context.Background(), repository.Eq(animeGenre, "action"))
	if env.Outcome != envelope.Success || env.Items[0] != 2 {
		t.Fatalf("unexpected count %+v", env)
	}
}

func TestInsert(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, nil)

	doc := newAnime("Frieren", "fantasy", 9.3, 28)
	env := repo.InsertOne(ctx, doc)
	if env.Outcome != envelope.Success || env.Items[0].ID != doc.ID {
		t.Fatalf("expected echo of inserted document, got %+v", env)
	}
	env = repo.InsertOne(ctx, doc)
	if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %+v", env)
	}

	env = repo.InsertMany(ctx, nil)
	if env.Outcome != envelope.Success || len(env.Items) != 0 {
		t.Fatalf("empty batch should succeed, got %+v", env)
	}
}

func TestUpsertOne(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, nil)
	doc := newAnime("Frieren", "fantasy", 9.3, 28)

	env := repo.UpsertOne(ctx, repository.ByID[anime](doc.ID), doc)
	if env.Outcome != envelope.Success || env.Message != repository.MsgInserted {
		t.Fatalf("expected insert, got %+v", env)
	}
	doc.Score = 9.4
	env = repo.UpsertOne(ctx, repository.ByID[anime](doc.ID), doc)
	if env.Outcome != envelope.Success || env.Message != repository.MsgUpdated {
		t.Fatalf("expected update, got %+v", env)
	}
	count := repo.Count(ctx, repository.All[anime]())
	if count.Items[0] != 1 {
		t.Fatalf("expected one document, got %d", count.Items[0])
	}
}

func TestReplaceOne(t *testing.T) {
	ctx := context.Background()
	docs := catalog()
	repo := newRepo(t, docs)

	replaced := docs[0]
	replaced.Episodes = 500
	env := repo.ReplaceOne(ctx, repository.ByID[anime](replaced.ID), replaced)
	if env.Outcome != envelope.Success || env.Items != nil {
		t.Fatalf("expected success without items, got %+v", env)
	}

	env = repo.ReplaceOne(ctx, repository.ByID[anime](primitive.NewObjectID()), replaced)
	if env.Outcome != envelope.Success {
		t.Fatalf("acknowledged replace without match is a success, got %+v", env)
	}

	other := replaced
	other.ID = primitive.NewObjectID()
	env = repo.ReplaceOne(ctx, repository.ByID[anime](replaced.ID), other)
	if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrImmutableID) {
		t.Fatalf("expected immutable id error, got %+v", env)
	}
}

func TestUpdateOne(t *testing.T) {
	ctx := context.Background()
	docs := catalog()
	repo := newRepo(t, docs)

	env := repo.UpdateOne(ctx, repository.ByID[anime](docs[2].ID), bson.D{{Key: "$inc", Value: bson.D{{Key: "episodes", Value: 1}}}})
	if env.Outcome != envelope.Success {
		t.Fatalf("expected success, got %+v", env)
	}
	got := repo.GetByID(ctx, docs[2].ID.Hex())
	if got.Items[0].Episodes != 14 {
		t.Fatalf("expected 14 episodes, got %d", got.Items[0].Episodes)
	}

	env = repo.UpdateOne(ctx, repository.ByID[anime](docs[2].ID), bson.D{{Key: "$set", Value: bson.D{{Key: "episodes", Value: 14}}}})
	if env.Outcome != envelope.Warning {
		t.Fatalf("update that changes nothing is a warning, got %+v", env)
	}

	env = repo.UpdateOne(ctx, repository.ByID[anime](primitive.NewObjectID()), bson.D{{Key: "$set", Value: bson.D{{Key: "genre", Value: "x"}}}})
	if env.Outcome != envelope.Warning {
		t.Fatalf("update without match is a warning, got %+v", env)
	}
}

func TestDeletes(t *testing.T) {
	ctx := context.Background()
	docs := catalog()
	repo := newRepo(t, docs)

	env := repo.DeleteByID(ctx, docs[0].ID.Hex())
	if env.Outcome != envelope.Success || env.Items[0].Title != "Naruto" {
		t.Fatalf("expected deleted document echoed, got %+v", env)
	}
	if env := repo.DeleteByID(ctx, docs[0].ID.Hex()); env.Outcome != envelope.Warning {
		t.Fatalf("second delete should warn, got %+v", env)
	}
	if env := repo.DeleteByID(ctx, "nope"); env.Outcome != envelope.Error {
		t.Fatalf("malformed id should fail, got %+v", env)
	}

	env = repo.DeleteOne(ctx, repository.Eq(animeGenre, "action"))
	if env.Outcome != envelope.Success || env.Items[0].Title != "Bleach" {
		t.Fatalf("expected Bleach deleted, got %+v", env)
	}

	env = repo.DeleteMany(ctx, repository.Gt(animeScore, 8.0))
	if env.Outcome != envelope.Success || env.Message != "2 documents deleted" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env := repo.DeleteMany(ctx, repository.Gt(animeScore, 8.0)); env.Outcome != envelope.Warning {
		t.Fatalf("delete without match should warn, got %+v", env)
	}
}

func TestGroupAndAggregate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, catalog())

	env := repo.GroupAndAggregate(ctx, animeGenre, repository.Sum(animeEpisodes), repository.Avg(animeScore).Named("mean"))
	if env.Outcome != envelope.Success || len(env.Items) != 4 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	first := env.Items[0]
	if first.Key != "action" || first.Values["sum_episodes"] != 586 || math.Abs(first.Values["mean"]-7.95) > 1e-9 {
		t.Fatalf("unexpected action group %+v", first)
	}

	env = repo.GroupAndAggregate(ctx, animeGenre, repository.Aggregation[anime]{Kind: "median", Field: "score"})
	if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrUnsupportedAggregation) {
		t.Fatalf("expected unsupported aggregation, got %+v", env)
	}

	env = repo.GroupAndAggregate(ctx, nil)
	if env.Outcome != envelope.Error {
		t.Fatalf("expected error without group field, got %+v", env)
	}

	env = repo.GroupAndAggregate(ctx, animeGenre, repository.Sum(animeEpisodes), repository.Sum(animeEpisodes))
	if env.Outcome != envelope.Error {
		t.Fatalf("expected error for duplicate alias, got %+v", env)
	}
}

func TestGroupAndAggregateWhere(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, catalog())

	env := repo.GroupAndAggregateWhere(ctx, repository.Gte(animeScore, 8.0), animeGenre, repository.Sum(animeEpisodes), repository.Tally[anime]())
	if env.Outcome != envelope.Success || len(env.Items) != 3 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.Items[0].Key != "action" || env.Items[0].Values["sum_episodes"] != 220 || env.Items[0].Values["count"] != 1 {
		t.Fatalf("expected only Naruto in the action group, got %+v", env.Items[0])
	}

	env = repo.GroupAndAggregateWhere(ctx, repository.Eq(animeGenre, "mecha"), animeGenre, repository.Sum(animeEpisodes))
	if env.Outcome != envelope.Success || len(env.Items) != 0 {
		t.Fatalf("expected an empty result, got %+v", env)
	}

	env = repo.GroupAndAggregateWhere(ctx, repository.Match(func(anime) bool { return true }), animeGenre)
	if env.Outcome != envelope.Error || !errors.Is(env.Err, repository.ErrUnsupportedAggregation) {
		t.Fatalf("expected Go-only predicates to be rejected, got %+v", env)
	}
}

func TestStoreFaults(t *testing.T) {
	ctx := context.Background()
	fault := errors.New("connection reset")
	repo := repository.New[anime](&stub{err: fault})

	checks := map[string]*envelope.Envelope[anime]{
		"GetAll":     repo.GetAll(ctx),
		"FilterBy":   repo.FilterBy(ctx, repository.All[anime]()),
		"GetByID":    repo.GetByID(ctx, primitive.NewObjectID().Hex()),
		"InsertOne":  repo.InsertOne(ctx, newAnime("x", "y", 1, 1)),
		"UpsertOne":  repo.UpsertOne(ctx, repository.All[anime](), newAnime("x", "y", 1, 1)),
		"ReplaceOne": repo.ReplaceOne(ctx, repository.All[anime](), newAnime("x", "y", 1, 1)),
		"UpdateOne":  repo.UpdateOne(ctx, repository.All[anime](), bson.D{}),
		"DeleteOne":  repo.DeleteOne(ctx, repository.All[anime]()),
		"DeleteMany": repo.DeleteMany(ctx, repository.All[anime]()),
	}
	for name, env := range checks {
		if env.Outcome != envelope.Error || env.Items != nil {
			t.Errorf("%s: expected error with absent items, got %+v", name, env)
			continue
		}
		if !errors.Is(env.Err, fault) {
			t.Errorf("%s: expected wrapped fault, got %v", name, env.Err)
		}
		if !strings.Contains(env.Detail, "stub."+name) {
			t.Errorf("%s: detail %q does not name the origin", name, env.Detail)
		}
	}
	if env := repo.Count(ctx, repository.All[anime]()); env.Outcome != envelope.Error {
		t.Errorf("Count: expected error, got %s", env.Outcome)
	}
}

func TestNoResultSet(t *testing.T) {
	ctx := context.Background()
	repo := repository.New[anime](&stub{nilFind: true})

	if env := repo.GetAll(ctx); env.Outcome != envelope.Warning || env.Message != repository.MsgNoResultSet {
		t.Fatalf("expected no result set warning, got %+v", env)
	}
	if env := repo.GetByID(ctx, primitive.NewObjectID().Hex()); env.Outcome != envelope.Warning {
		t.Fatalf("expected warning, got %+v", env)
	}
	if env := repo.GroupAndAggregate(ctx, animeGenre); env.Outcome != envelope.Warning {
		t.Fatalf("expected warning, got %+v", env)
	}
}

func TestUnacknowledgedWrites(t *testing.T) {
	ctx := context.Background()
	repo := repository.New[anime](&stub{write: repository.WriteResult{Acknowledged: false}})
	doc := newAnime("x", "y", 1, 1)

	for name, env := range map[string]*envelope.Envelope[anime]{
		"UpsertOne":  repo.UpsertOne(ctx, repository.All[anime](), doc),
		"ReplaceOne": repo.ReplaceOne(ctx, repository.All[anime](), doc),
		"UpdateOne":  repo.UpdateOne(ctx, repository.All[anime](), bson.D{{Key: "$set", Value: bson.D{}}}),
	} {
		if env.Outcome != envelope.Warning || env.Message != repository.MsgNotAcknowledged {
			t.Errorf("%s: expected unacknowledged warning, got %+v", name, env)
		}
	}
}

func TestObserver(t *testing.T) {
	var (
		mu       sync.Mutex
		outcomes []string
	)
	obs := repository.ObserverFunc(func(ctx context.Context, collection, operation string) (context.Context, repository.FinishFunc) {
		return ctx, func(outcome envelope.Outcome, err error) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, collection+"."+operation+"="+string(outcome))
		}
	})
	repo := newRepo(t, catalog(), repository.WithObserver[anime](repository.Observers(nil, obs)))

	repo.GetByID(context.Background(), "bad")
	repo.Count(context.Background(), repository.All[anime]())

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(outcomes, " ") != "anime.InsertMany=SUCCESS anime.GetByID=ERROR anime.Count=SUCCESS" {
		t.Fatalf("unexpected observations %v", outcomes)
	}
}
