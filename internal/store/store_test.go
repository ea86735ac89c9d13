package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"toacrd.app/oracle/common/id"
	"toacrd.app/oracle/internal/model"
	"toacrd.app/oracle/internal/store"
)

func contents(turns []model.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}

func numbered(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("turn %d", i))
	}
	return out
}

// conversationStoreBehaviour runs the contract every backend must honour.
func conversationStoreBehaviour(newStore func() store.ConversationStore) {
	var (
		ctx context.Context
		s   store.ConversationStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = newStore()
	})

	It("starts empty for unknown users", func() {
		turns, err := s.History(ctx, "nobody-"+id.NewString())
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(BeEmpty())
	})

	It("keeps only the 20 most recent turns, oldest first", func() {
		user := "u-" + id.NewString()
		for i := 1; i <= 25; i++ {
			Expect(s.Append(ctx, user, model.UserTurn(fmt.Sprintf("turn %d", i)))).To(Succeed())
			turns, err := s.History(ctx, user)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(turns)).To(BeNumerically("<=", model.DefaultMaxTurns))
		}

		turns, err := s.History(ctx, user)
		Expect(err).NotTo(HaveOccurred())
		Expect(contents(turns)).To(Equal(numbered(6, 25)))
	})

	It("keeps users apart", func() {
		a, b := "a-"+id.NewString(), "b-"+id.NewString()
		Expect(s.Append(ctx, a, model.UserTurn("bonjour"))).To(Succeed())
		Expect(s.Append(ctx, b, model.AssistantTurn("salut", "gpt-4o-mini"))).To(Succeed())

		turns, _ := s.History(ctx, a)
		Expect(contents(turns)).To(Equal([]string{"bonjour"}))
		turns, _ = s.History(ctx, b)
		Expect(turns).To(HaveLen(1))
		Expect(turns[0].Role).To(Equal(model.RoleAssistant))
		Expect(turns[0].Model).To(Equal("gpt-4o-mini"))
		Expect(turns[0].ID).NotTo(BeZero())
	})

	It("rejects an empty user id", func() {
		Expect(s.Append(ctx, "", model.UserTurn("x"))).To(MatchError(store.ErrInvalidUser))
		_, err := s.History(ctx, "")
		Expect(err).To(MatchError(store.ErrInvalidUser))
	})

	It("stays bounded under concurrent appends", func() {
		user := "c-" + id.NewString()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(s.Append(ctx, user, model.UserTurn(fmt.Sprintf("turn %d", i)))).To(Succeed())
			}()
		}
		wg.Wait()

		turns, err := s.History(ctx, user)
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(HaveLen(model.DefaultMaxTurns))
	})
}

var _ = Describe("MemoryConversationStore", func() {
	conversationStoreBehaviour(func() store.ConversationStore {
		return store.NewMemoryConversationStore(model.DefaultMaxTurns)
	})
})

var _ = Describe("RedisConversationStore", func() {
	var client *redis.Client

	BeforeEach(func() {
		url := os.Getenv("REDIS_URL")
		if url == "" {
			Skip("REDIS_URL not set")
		}
		opts, err := redis.ParseURL(url)
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(opts)
		DeferCleanup(client.Close)
	})

	conversationStoreBehaviour(func() store.ConversationStore {
		return store.NewRedisConversationStore(client, "oracle:test:history:", model.DefaultMaxTurns)
	})
})

type fakeDB struct {
	mu    sync.Mutex
	execs [][]any
	err   error
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no database")
}

var _ = Describe("ArchivedStore", func() {
	ctx := context.Background()

	It("archives each appended turn with its id", func() {
		db := &fakeDB{}
		s := store.NewArchivedStore(store.NewMemoryConversationStore(2), db, nil)

		Expect(s.Append(ctx, "u1", model.UserTurn("q"))).To(Succeed())
		Expect(s.Append(ctx, "u1", model.AssistantTurn("r", "gpt-4o-mini"))).To(Succeed())

		Expect(db.execs).To(HaveLen(2))
		Expect(db.execs[1][1]).To(Equal("u1"))
		Expect(db.execs[1][2]).To(Equal("assistant"))
		Expect(db.execs[1][4]).To(Equal("gpt-4o-mini"))

		turns, err := s.History(ctx, "u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(HaveLen(2))
		Expect(turns[0].ID).To(Equal(db.execs[0][0]))
	})

	It("does not fail the append when archiving fails", func() {
		db := &fakeDB{err: errors.New("connection refused")}
		s := store.NewArchivedStore(store.NewMemoryConversationStore(20), db, nil)

		Expect(s.Append(ctx, "u1", model.UserTurn("q"))).To(Succeed())
		turns, _ := s.History(ctx, "u1")
		Expect(turns).To(HaveLen(1))
	})

	It("does not archive turns the history rejected", func() {
		db := &fakeDB{}
		s := store.NewArchivedStore(store.NewMemoryConversationStore(20), db, nil)

		Expect(s.Append(ctx, "", model.UserTurn("q"))).To(MatchError(store.ErrInvalidUser))
		Expect(db.execs).To(BeEmpty())
	})

	It("wraps archive query errors", func() {
		s := store.NewArchivedStore(store.NewMemoryConversationStore(20), &fakeDB{}, nil)
		_, err := s.Archived(ctx, "u1", 10)
		Expect(err).To(MatchError(ContainSubstring("query archived turns")))
	})
})
