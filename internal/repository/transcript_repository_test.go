package repository

import (
	"context"
	"testing"

	"fsdm-chat-go/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (TranscriptRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTranscriptRepository(client), mr
}

func sampleLog() []model.Message {
	return []model.Message{
		model.NewMessage("Bonjour ! Comment puis-je vous aider ?", model.SenderBot),
		model.NewMessage("Quels masters en informatique ?", model.SenderUser),
		model.NewMessage("Le master MLAIM.\n\n📚 Sources consultées :\n• guide.pdf", model.SenderBot),
	}
}

func assertSameLog(t *testing.T, want, got []model.Message) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Content, got[i].Content)
		assert.Equal(t, want[i].Sender, got[i].Sender)
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
	}
}

func TestTranscriptRepositories_RoundTrip(t *testing.T) {
	redisRepo, _ := newRedisRepo(t)
	repos := map[string]TranscriptRepository{
		"memory": NewMemoryTranscriptRepository(),
		"redis":  redisRepo,
	}
	for name, repo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Load(ctx, "chatHistory")
			assert.ErrorIs(t, err, ErrTranscriptNotFound)

			log := sampleLog()
			require.NoError(t, repo.Save(ctx, "chatHistory", log))

			got, err := repo.Load(ctx, "chatHistory")
			require.NoError(t, err)
			assertSameLog(t, log, got)

			// 后写覆盖
			require.NoError(t, repo.Save(ctx, "chatHistory", log[:1]))
			got, err = repo.Load(ctx, "chatHistory")
			require.NoError(t, err)
			assertSameLog(t, log[:1], got)

			// 空日志保存为 []
			require.NoError(t, repo.Save(ctx, "chatHistory", nil))
			got, err = repo.Load(ctx, "chatHistory")
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRedisTranscriptRepository_KeyLayout(t *testing.T) {
	repo, mr := newRedisRepo(t)
	require.NoError(t, repo.Save(context.Background(), "chatHistory", sampleLog()))

	assert.True(t, mr.Exists("conversation:chatHistory"))
	assert.Equal(t, 0, int(mr.TTL("conversation:chatHistory")))
}

func TestRedisTranscriptRepository_Corrupt(t *testing.T) {
	repo, mr := newRedisRepo(t)
	require.NoError(t, mr.Set("conversation:chatHistory", "{not json"))

	_, err := repo.Load(context.Background(), "chatHistory")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTranscriptNotFound)
}

func TestRedisTranscriptRepository_Unavailable(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()

	_, err := repo.Load(context.Background(), "chatHistory")
	assert.Error(t, err)
	assert.Error(t, repo.Save(context.Background(), "chatHistory", sampleLog()))
}
