package visibility

import (
	"testing"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/testutil"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countUsers(t *testing.T, db *gorm.DB, scope func(*gorm.DB) *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Scopes(scope).Count(&n).Error)
	return n
}

func TestVisible_Flags(t *testing.T) {
	db := testutil.OpenDB(t)

	ordinary1 := testutil.GenerateUser(t, db)
	ordinary2 := testutil.GenerateUser(t, db)
	testutil.GenerateUser(t, db, testutil.Invisible())
	banned := testutil.GenerateUser(t, db)
	deleted := testutil.GenerateUser(t, db)

	require.NoError(t, db.Model(banned).Update("is_banned", true).Error)
	require.NoError(t, db.Model(deleted).Update("is_deleted", true).Error)

	var users []models.User
	require.NoError(t, db.Where(Visible("users")).Order("username").Find(&users).Error)

	ids := []uuid.UUID{}
	for _, u := range users {
		ids = append(ids, u.ID)
		assert.True(t, u.IsVisible())
	}
	assert.ElementsMatch(t, []uuid.UUID{ordinary1.ID, ordinary2.ID}, ids)
}

func TestVisible_InvisibleByEachPath(t *testing.T) {
	db := testutil.OpenDB(t)

	testutil.GenerateUser(t, db)
	testutil.GenerateUser(t, db, testutil.Banned())
	testutil.GenerateUser(t, db, testutil.Deleted())
	flagged := testutil.GenerateUser(t, db)
	testutil.MakeUserInvisible(t, db, flagged.ID)
	testutil.GenerateUser(t, db, testutil.Invisible())

	assert.EqualValues(t, 1, countUsers(t, db, UsersVisibleNoViewer()))
}

func TestUsersVisible_Blocks(t *testing.T) {
	db := testutil.OpenDB(t)

	user1 := testutil.GenerateUser(t, db)
	testutil.GenerateUser(t, db, testutil.Invisible())
	user3 := testutil.GenerateUser(t, db)
	user4 := testutil.GenerateUser(t, db)

	testutil.MakeUserBlock(t, db, user1, user3)
	testutil.MakeUserBlock(t, db, user4, user1)

	// only the viewer itself remains
	assert.EqualValues(t, 1, countUsers(t, db, UsersVisible(viewer.New(user1.ID))))
	// user3 sees user4 and itself, but not user1
	assert.EqualValues(t, 2, countUsers(t, db, UsersVisible(viewer.New(user3.ID))))
}

func TestUsersVisible_BlockIsSymmetric(t *testing.T) {
	tests := []struct {
		name        string
		viewerBlock bool
	}{
		{name: "viewer blocks user", viewerBlock: true},
		{name: "user blocks viewer", viewerBlock: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.OpenDB(t)
			v := testutil.GenerateUser(t, db)
			u := testutil.GenerateUser(t, db)

			if tt.viewerBlock {
				testutil.MakeUserBlock(t, db, v, u)
			} else {
				testutil.MakeUserBlock(t, db, u, v)
			}

			var found []models.User
			err := db.Scopes(UsersVisible(viewer.New(v.ID))).Where("users.id = ?", u.ID).Find(&found).Error
			require.NoError(t, err)
			assert.Empty(t, found)

			// the pair stays hidden from each other regardless of direction
			err = db.Scopes(UsersVisible(viewer.New(u.ID))).Where("users.id = ?", v.ID).Find(&found).Error
			require.NoError(t, err)
			assert.Empty(t, found)
		})
	}
}

func TestUsersVisible_SelfVisibility(t *testing.T) {
	db := testutil.OpenDB(t)

	visible := testutil.GenerateUser(t, db)
	hidden := testutil.GenerateUser(t, db, testutil.Invisible())

	var n int64
	require.NoError(t, db.Model(&models.User{}).Scopes(UsersVisible(viewer.New(visible.ID))).
		Where("users.id = ?", visible.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	require.NoError(t, db.Model(&models.User{}).Scopes(UsersVisible(viewer.New(hidden.ID))).
		Where("users.id = ?", hidden.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestUsersVisible_ComposesWithFilters(t *testing.T) {
	db := testutil.OpenDB(t)

	v := testutil.GenerateUser(t, db, testutil.WithGender("Man"))
	testutil.GenerateUser(t, db, testutil.WithGender("Woman"))
	testutil.GenerateUser(t, db, testutil.WithGender("Woman"))
	blocked := testutil.GenerateUser(t, db, testutil.WithGender("Woman"))
	testutil.MakeUserBlock(t, db, v, blocked)

	type genderCount struct {
		Gender string
		Total  int64
	}
	var rows []genderCount
	err := db.Model(&models.User{}).
		Scopes(UsersVisible(viewer.New(v.ID))).
		Select("gender, COUNT(*) AS total").
		Group("gender").
		Order("gender").
		Scan(&rows).Error
	require.NoError(t, err)

	assert.Equal(t, []genderCount{{Gender: "Man", Total: 1}, {Gender: "Woman", Total: 2}}, rows)
}

func TestUsersVisible_OrFilters(t *testing.T) {
	db := testutil.OpenDB(t)

	v := testutil.GenerateUser(t, db, testutil.WithGender("Man"))
	woman := testutil.GenerateUser(t, db, testutil.WithGender("Woman"))
	testutil.GenerateUser(t, db, testutil.WithGender("Woman"), testutil.Banned())
	other := testutil.GenerateUser(t, db, testutil.WithGender("Other"))
	blocked := testutil.GenerateUser(t, db, testutil.WithGender("Other"))
	testutil.MakeUserBlock(t, db, v, blocked)

	var users []models.User
	err := db.Model(&models.User{}).
		Where("gender = ?", "Woman").
		Or("gender = ?", "Other").
		Scopes(UsersVisible(viewer.New(v.ID))).
		Find(&users).Error
	require.NoError(t, err)

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	assert.ElementsMatch(t, []uuid.UUID{woman.ID, other.ID}, ids)
}

func TestUsersVisible_MissingViewer(t *testing.T) {
	db := testutil.OpenDB(t)
	testutil.GenerateUser(t, db)

	var n int64
	err := db.Model(&models.User{}).Scopes(UsersVisible(nil)).Count(&n).Error
	assert.ErrorIs(t, err, ErrInvalidContext)

	err = db.Model(&models.User{}).Scopes(UsersVisible(viewer.New(uuid.Nil))).Count(&n).Error
	assert.ErrorIs(t, err, ErrInvalidContext)

	_, err = VisibleTo(uuid.Nil, "users")
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestUsersColumnVisible_Friends(t *testing.T) {
	db := testutil.OpenDB(t)

	user1 := testutil.GenerateUser(t, db)
	user2 := testutil.GenerateUser(t, db)
	user3 := testutil.GenerateUser(t, db)
	user4 := testutil.GenerateUser(t, db)
	user5 := testutil.GenerateUser(t, db)

	testutil.MakeFriends(t, db, user1, user2)
	testutil.MakeFriends(t, db, user1, user3)
	testutil.MakeFriends(t, db, user1, user4)
	testutil.MakeFriends(t, db, user1, user5)

	testutil.MakeUserInvisible(t, db, user3.ID)
	testutil.MakeUserBlock(t, db, user1, user4)
	testutil.MakeUserBlock(t, db, user5, user1)

	var n int64
	err := db.Model(&models.FriendRelationship{}).
		Scopes(UsersColumnVisible(viewer.New(user1.ID), "to_user_id")).
		Count(&n).Error
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var rels []models.FriendRelationship
	err = db.Scopes(UsersColumnVisible(viewer.New(user1.ID), "to_user_id")).Find(&rels).Error
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, user2.ID, rels[0].ToUserID)
}

func TestUsersColumnVisible_OrFilters(t *testing.T) {
	db := testutil.OpenDB(t)

	v := testutil.GenerateUser(t, db)
	friend := testutil.GenerateUser(t, db)
	blocked := testutil.GenerateUser(t, db)
	testutil.MakeFriends(t, db, v, friend)
	testutil.MakeFriends(t, db, v, blocked)
	testutil.MakeUserBlock(t, db, v, blocked)

	var n int64
	err := db.Model(&models.FriendRelationship{}).
		Where("to_user_id = ?", blocked.ID).
		Or("to_user_id = ?", friend.ID).
		Scopes(UsersColumnVisible(viewer.New(v.ID), "to_user_id")).
		Count(&n).Error
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUsersColumnVisible_TableAlias(t *testing.T) {
	db := testutil.OpenDB(t)

	v := testutil.GenerateUser(t, db)
	friend := testutil.GenerateUser(t, db)
	hidden := testutil.GenerateUser(t, db, testutil.Invisible())
	testutil.MakeFriends(t, db, v, friend)
	testutil.MakeFriends(t, db, v, hidden)

	var n int64
	err := db.Model(&models.FriendRelationship{}).
		Table("friend_relationships AS fr").
		Where("fr.from_user_id = ?", v.ID).
		Scopes(UsersColumnVisible(viewer.New(v.ID), "to_user_id")).
		Count(&n).Error
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	col, err := UserColumn(db.Table("friend_relationships AS fr"), &models.FriendRelationship{}, "to_user_id")
	require.NoError(t, err)
	assert.Equal(t, "fr", col.Table)
}

func TestUsersColumnVisible_NoFanOut(t *testing.T) {
	db := testutil.OpenDB(t)

	v := testutil.GenerateUser(t, db)
	friend := testutil.GenerateUser(t, db)
	other := testutil.GenerateUser(t, db)

	// rows referencing visible users, with blocks touching other pairs, are
	// neither multiplied nor dropped
	testutil.MakeFriends(t, db, v, friend)
	testutil.MakeFriends(t, db, other, friend)
	testutil.MakeFriends(t, db, friend, v)
	testutil.MakeUserBlock(t, db, other, v)
	testutil.MakeUserBlock(t, db, friend, other)

	var joined int64
	require.NoError(t, db.Model(&models.FriendRelationship{}).
		Joins("JOIN users ON users.id = friend_relationships.to_user_id").
		Count(&joined).Error)

	var filtered int64
	require.NoError(t, db.Model(&models.FriendRelationship{}).
		Scopes(UsersColumnVisible(viewer.New(v.ID), "to_user_id")).
		Count(&filtered).Error)

	assert.EqualValues(t, 3, joined)
	assert.Equal(t, joined, filtered)
}

func TestUsersColumnVisible_OuterQueryOverBlocks(t *testing.T) {
	db := testutil.OpenDB(t)

	v := testutil.GenerateUser(t, db)
	a := testutil.GenerateUser(t, db)
	b := testutil.GenerateUser(t, db, testutil.Banned())
	c := testutil.GenerateUser(t, db)

	testutil.MakeUserBlock(t, db, a, b)
	testutil.MakeUserBlock(t, db, a, c)
	testutil.MakeUserBlock(t, db, c, v)

	var blocks []models.UserBlock
	err := db.Scopes(UsersColumnVisible(viewer.New(v.ID), "blocked_id")).Find(&blocks).Error
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, c.ID, blocks[0].BlockerID)
	assert.Equal(t, v.ID, blocks[0].BlockedID)

	err = db.Scopes(UsersColumnVisible(viewer.New(v.ID), "blocker_id")).Find(&blocks).Error
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestUsersColumnVisible_SchemaMismatch(t *testing.T) {
	db := testutil.OpenDB(t)
	v := testutil.GenerateUser(t, db)

	tests := []struct {
		name   string
		model  any
		column string
	}{
		{name: "not a user reference", model: &models.FriendRelationship{}, column: "status"},
		{name: "unknown column", model: &models.FriendRelationship{}, column: "nope"},
		{name: "own primary key", model: &models.User{}, column: "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n int64
			err := db.Model(tt.model).Scopes(UsersColumnVisible(viewer.New(v.ID), tt.column)).Count(&n).Error
			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestUsersColumnVisible_MissingViewer(t *testing.T) {
	db := testutil.OpenDB(t)

	var n int64
	err := db.Model(&models.FriendRelationship{}).Scopes(UsersColumnVisible(nil, "to_user_id")).Count(&n).Error
	assert.ErrorIs(t, err, ErrInvalidContext)
}

func TestUserColumn(t *testing.T) {
	db := testutil.OpenDB(t)

	col, err := UserColumn(db, &models.FriendRelationship{}, "FromUserID")
	require.NoError(t, err)
	assert.Equal(t, "friend_relationships", col.Table)
	assert.Equal(t, "from_user_id", col.Name)

	col, err = UserColumn(db, &[]models.Report{}, "reported_user_id")
	require.NoError(t, err)
	assert.Equal(t, "reports", col.Table)

	_, err = UserColumn(db, nil, "to_user_id")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
