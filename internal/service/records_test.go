package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/thinkedin/internal/models"
	"github.com/pribylovaa/thinkedin/internal/moderation"
	"github.com/pribylovaa/thinkedin/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestService_EditRecord_Owner(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	owner := uuid.New()
	ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", OwnerID: owner}, nil)
	ms.EXPECT().EditRecord(gomock.Any(), models.RecordPost, "p1", "edited text", owner).Return(nil)

	err := s.EditRecord(context.Background(), Actor{AccountID: owner}, models.RecordPost, "p1", "  edited text ")
	require.NoError(t, err)
}

// Чужая запись: отказ без обращения к EditRecord хранилища.
func TestService_EditRecord_NotOwner(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", OwnerID: uuid.New()}, nil)

	err := s.EditRecord(context.Background(), Actor{AccountID: uuid.New()}, models.RecordPost, "p1", "hijack")
	require.ErrorIs(t, err, ErrUnauthorized)
}

// Анонимную запись не может изменить никто.
func TestService_EditRecord_AnonymousRecord(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().CommentByID(gomock.Any(), "c1").Return(&models.Comment{ID: "c1"}, nil)

	err := s.EditRecord(context.Background(), Actor{AccountID: uuid.New()}, models.RecordComment, "c1", "mine now")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_EditRecord_Unauthenticated(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	err := s.EditRecord(context.Background(), device("dev-1"), models.RecordPost, "p1", "text")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestService_EditRecord_Validation(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	owner := Actor{AccountID: uuid.New()}
	ms.EXPECT().CommentByID(gomock.Any(), "c1").Return(&models.Comment{ID: "c1", OwnerID: owner.AccountID}, nil)

	require.ErrorIs(t, s.EditRecord(context.Background(), owner, "story", "p1", "text"), ErrValidation)
	require.ErrorIs(t, s.EditRecord(context.Background(), owner, models.RecordPost, " ", "text"), ErrValidation)
	require.ErrorIs(t, s.EditRecord(context.Background(), owner, models.RecordComment, "c1", "  "), ErrValidation)
}

// Не владелец получает Unauthorized даже с пустым или слишком длинным текстом.
func TestService_EditRecord_NotOwnerBeforeContent(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", OwnerID: uuid.New()}, nil).Times(2)

	stranger := Actor{AccountID: uuid.New()}

	err := s.EditRecord(context.Background(), stranger, models.RecordPost, "p1", "   ")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NotErrorIs(t, err, ErrValidation)

	err = s.EditRecord(context.Background(), stranger, models.RecordPost, "p1", strings.Repeat("x", 1001))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NotErrorIs(t, err, ErrValidation)
}

// Запись исчезла между проверкой владельца и обновлением.
func TestService_EditRecord_Vanished(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	owner := uuid.New()
	ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", OwnerID: owner}, nil)
	ms.EXPECT().EditRecord(gomock.Any(), models.RecordPost, "p1", "text", owner).Return(storage.ErrNotFound)

	err := s.EditRecord(context.Background(), Actor{AccountID: owner}, models.RecordPost, "p1", "text")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_EditRecord_Tombstone(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	owner := uuid.New()
	ms.EXPECT().CommentByID(gomock.Any(), "c1").
		Return(&models.Comment{ID: "c1", OwnerID: owner, IsDeleted: true, Content: models.Tombstone}, nil)

	err := s.EditRecord(context.Background(), Actor{AccountID: owner}, models.RecordComment, "c1", "revive")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteRecord_Post(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	owner := uuid.New()
	ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", OwnerID: owner}, nil)
	ms.EXPECT().DeleteRecord(gomock.Any(), models.RecordPost, "p1", owner).Return(nil)

	require.NoError(t, s.DeleteRecord(context.Background(), Actor{AccountID: owner}, models.RecordPost, "p1"))
}

func TestService_DeleteRecord_Errors(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	owner := uuid.New()
	actor := Actor{AccountID: owner}

	ms.EXPECT().PostByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
	require.ErrorIs(t, s.DeleteRecord(context.Background(), actor, models.RecordPost, "missing"), ErrNotFound)

	ms.EXPECT().PostByID(gomock.Any(), "down").Return(nil, errDB)
	require.ErrorIs(t, s.DeleteRecord(context.Background(), actor, models.RecordPost, "down"), ErrStoreUnavailable)

	ms.EXPECT().CommentByID(gomock.Any(), "c1").Return(&models.Comment{ID: "c1", OwnerID: owner}, nil)
	ms.EXPECT().DeleteRecord(gomock.Any(), models.RecordComment, "c1", owner).Return(storage.ErrForbidden)
	require.ErrorIs(t, s.DeleteRecord(context.Background(), actor, models.RecordComment, "c1"), ErrUnauthorized)

	require.ErrorIs(t, s.DeleteRecord(context.Background(), device("dev-1"), models.RecordComment, "c1"), ErrUnauthenticated)
}

func TestService_CreateComment(t *testing.T) {
	s, ms, mv, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()
	allowAll(mv)

	ms.EXPECT().CreateComment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, c models.Comment) (*models.Comment, error) {
			require.Equal(t, "p1", c.PostID)
			require.Equal(t, "c0", c.ParentID)
			require.Equal(t, "Reply", c.Content)
			require.NotEmpty(t, c.Pseudonym)
			c.ID = "c1"
			return &c, nil
		})

	comm, err := s.CreateComment(context.Background(), device("dev-1"),
		CreateCommentInput{PostID: " p1 ", ParentID: "c0", Content: " Reply "})
	require.NoError(t, err)
	require.Equal(t, "c1", comm.ID)
}

func TestService_CreateComment_Errors(t *testing.T) {
	s, ms, mv, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	_, err := s.CreateComment(context.Background(), device("dev-1"), CreateCommentInput{Content: "no post"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateComment(context.Background(), device("dev-1"), CreateCommentInput{PostID: "p1", Content: " "})
	require.ErrorIs(t, err, ErrValidation)

	mv.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(moderation.Allow, nil).Times(3)

	ms.EXPECT().CreateComment(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	_, err = s.CreateComment(context.Background(), device("dev-1"), CreateCommentInput{PostID: "p1", Content: "hi"})
	require.ErrorIs(t, err, ErrNotFound)

	ms.EXPECT().CreateComment(gomock.Any(), gomock.Any()).Return(nil, storage.ErrParentNotFound)
	_, err = s.CreateComment(context.Background(), device("dev-1"), CreateCommentInput{PostID: "p1", ParentID: "x", Content: "hi"})
	require.ErrorIs(t, err, ErrNotFound)

	ms.EXPECT().CreateComment(gomock.Any(), gomock.Any()).Return(nil, errDB)
	_, err = s.CreateComment(context.Background(), device("dev-1"), CreateCommentInput{PostID: "p1", Content: "hi"})
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestService_CreateComment_Rejected(t *testing.T) {
	s, _, mv, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	mv.EXPECT().Validate(gomock.Any(), gomock.Any()).
		Return(moderation.Reject(moderation.ReasonDuplicate, "too many"), nil)

	_, err := s.CreateComment(context.Background(), device("dev-1"), CreateCommentInput{PostID: "p1", Content: "same again"})
	require.ErrorIs(t, err, ErrRejected)
}

// Дерево: сирота поднимается в корень, счётчик включает всех потомков.
func TestService_Thread(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ms.EXPECT().ListComments(gomock.Any(), "p1").Return([]models.Comment{
		{ID: "a", PostID: "p1", CreatedAt: base},
		{ID: "b", PostID: "p1", ParentID: "a", CreatedAt: base.Add(time.Minute)},
		{ID: "c", PostID: "p1", ParentID: "b", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", PostID: "p1", ParentID: "gone", CreatedAt: base.Add(3 * time.Minute)},
	}, nil)

	th, err := s.Thread(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, 4, th.Total)
	require.Len(t, th.Roots, 2)
	require.Equal(t, "a", th.Roots[0].Comment.ID)
	require.Equal(t, "d", th.Roots[1].Comment.ID)
	require.Equal(t, 3, th.Roots[0].Count())
	require.Equal(t, 3, th.Policy.MaxDepth)
}

func TestService_ListComments_FallbackToEmpty(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().ListComments(gomock.Any(), "p1").Return(nil, errDB)

	comments, err := s.ListComments(context.Background(), "p1")
	require.NoError(t, err)
	require.Empty(t, comments)

	_, err = s.ListComments(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)
}

// Двойное переключение возвращает счётчик к исходному; сбой сервера не виден вызывающему.
func TestService_ToggleReaction_TwiceRestores(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().PostByID(gomock.Any(), "p1").
		Return(&models.Post{ID: "p1", Reactions: models.Reactions{Think: 5}}, nil)
	ms.EXPECT().IncrementReactionCounter(gomock.Any(), "p1", models.ReactionThink, gomock.Any()).
		Return(nil, errors.New("network down")).AnyTimes()

	st, err := s.ToggleReaction(context.Background(), device("dev-1"), "p1", models.ReactionThink)
	require.NoError(t, err)
	require.EqualValues(t, 6, st.Reactions.Think)
	require.True(t, st.Mine[models.ReactionThink])

	st, err = s.ToggleReaction(context.Background(), device("dev-1"), "p1", models.ReactionThink)
	require.NoError(t, err)
	require.EqualValues(t, 5, st.Reactions.Think)
	require.False(t, st.Mine[models.ReactionThink])

	s.Wait()
}

func TestService_ToggleReaction_Errors(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	_, err := s.ToggleReaction(context.Background(), device("dev-1"), "p1", "angry")
	require.ErrorIs(t, err, ErrValidation)

	ms.EXPECT().PostByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
	_, err = s.ToggleReaction(context.Background(), device("dev-1"), "missing", models.ReactionInspired)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_Reactions_PerDeviceFlags(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1"}, nil)
	ms.EXPECT().PostByID(gomock.Any(), "p1").
		Return(&models.Post{ID: "p1", Reactions: models.Reactions{Following: 1}}, nil).Times(2)
	ms.EXPECT().IncrementReactionCounter(gomock.Any(), "p1", models.ReactionFollowing, int64(1)).
		Return(&models.ReactionSnapshot{PostID: "p1", Reactions: models.Reactions{Following: 1}}, nil)

	_, err := s.ToggleReaction(context.Background(), device("dev-1"), "p1", models.ReactionFollowing)
	require.NoError(t, err)
	s.Wait()

	mine, err := s.Reactions(context.Background(), device("dev-1"), "p1")
	require.NoError(t, err)
	require.True(t, mine.Mine[models.ReactionFollowing])
	require.EqualValues(t, 1, mine.Reactions.Following)

	other, err := s.Reactions(context.Background(), device("dev-2"), "p1")
	require.NoError(t, err)
	require.False(t, other.Mine[models.ReactionFollowing])
	require.EqualValues(t, 1, other.Reactions.Following)
}

// Счётчики, изменённые другим экземпляром, видны при следующем чтении.
func TestService_Reactions_RereadsStorage(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	gomock.InOrder(
		ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", Reactions: models.Reactions{Inspired: 5}}, nil),
		ms.EXPECT().PostByID(gomock.Any(), "p1").Return(&models.Post{ID: "p1", Reactions: models.Reactions{Inspired: 9}}, nil),
		ms.EXPECT().PostByID(gomock.Any(), "p1").Return(nil, errDB),
	)

	st, err := s.Reactions(context.Background(), device("dev-1"), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 5, st.Reactions.Inspired)

	st, err = s.Reactions(context.Background(), device("dev-1"), "p1")
	require.NoError(t, err)
	require.EqualValues(t, 9, st.Reactions.Inspired)

	_, err = s.Reactions(context.Background(), device("dev-1"), "p1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestService_CastVote(t *testing.T) {
	s, ms, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	_, err := s.CastVote(context.Background(), device("dev-1"), "maybe")
	require.ErrorIs(t, err, ErrValidation)

	ms.EXPECT().SetVote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, v models.Vote) error {
			require.Equal(t, models.VoteWant, v.Choice)
			require.NotEmpty(t, v.Pseudonym)
			return nil
		})
	ms.EXPECT().VoteTally(gomock.Any()).Return(&models.VoteTally{Want: 3, Dont: 1}, nil)

	tally, err := s.CastVote(context.Background(), device("dev-1"), models.VoteWant)
	require.NoError(t, err)
	require.EqualValues(t, 3, tally.Want)

	ms.EXPECT().VoteTally(gomock.Any()).Return(nil, errDB)
	tally, err = s.VoteTally(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.VoteTally{}, *tally)
}

func TestService_Identity(t *testing.T) {
	s, _, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	first, err := s.Identity(context.Background(), device("dev-1"))
	require.NoError(t, err)
	require.NotEmpty(t, first.Pseudonym)
	require.False(t, first.OnboardingDismissed)
	require.False(t, first.Authenticated)

	require.NoError(t, s.DismissOnboarding(context.Background(), device("dev-1")))

	again, err := s.Identity(context.Background(), Actor{DeviceID: "dev-1", AccountID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, first.Pseudonym, again.Pseudonym)
	require.True(t, again.OnboardingDismissed)
	require.True(t, again.Authenticated)
}
