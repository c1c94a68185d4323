package communities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/viewer"
	"github.com/couchers-org/couchers-backend/internal/visibility"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const (
	MaxDescriptionLength = 500
	// A community counts as filled in once its description and main page
	// exceed this many characters.
	completeContentLength = 200
)

var (
	ErrCommunityNotFound  = errors.New("community not found")
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrDescriptionTooLong = fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	ErrNameRequired       = errors.New("community name is required")
	ErrAlreadyAdmin       = errors.New("user is already an admin of this community")
	ErrNotAdmin           = errors.New("user is not an admin of this community")
)

// IncompleteCommunity describes an official community missing at least one of
// discussions, a long enough description or main page, or a non-man admin.
type IncompleteCommunity struct {
	ID                   uint      `json:"id"`
	ParentNodeID         uint      `json:"parent_node_id"`
	Name                 string    `json:"name"`
	URL                  string    `json:"url"`
	CreatedAt            time.Time `json:"created_at"`
	HasDiscussions       bool      `json:"has_discussions"`
	HasDescriptionLength bool      `json:"has_description_length"`
	HasMainPageLength    bool      `json:"has_main_page_length"`
	HasNonManAdmin       bool      `json:"has_non_man_admin"`
}

func (c IncompleteCommunity) complete() bool {
	return c.HasDiscussions && c.HasDescriptionLength && c.HasMainPageLength && c.HasNonManAdmin
}

// CommunityService manages communities: the official clusters of nodes.
type CommunityService struct {
	db      *gorm.DB
	baseURL string
}

func NewCommunityService(db *gorm.DB, baseURL string) *CommunityService {
	return &CommunityService{db: db, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// CreateCommunity creates a node with its official cluster and main page. The
// creator becomes the first admin.
func (s *CommunityService) CreateCommunity(creatorID uuid.UUID, name, description string, parentNodeID *uint) (*Cluster, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}

	var cluster Cluster
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", creatorID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}

		node := Node{ParentNodeID: parentNodeID}
		if err := tx.Create(&node).Error; err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}

		cluster = Cluster{
			ParentNodeID:      node.ID,
			Name:              name,
			Slug:              Slugify(name),
			Description:       description,
			IsOfficialCluster: true,
		}
		if err := tx.Create(&cluster).Error; err != nil {
			return fmt.Errorf("failed to create cluster: %w", err)
		}

		page := Page{
			Type:           PageTypeMain,
			CreatorUserID:  creatorID,
			OwnerClusterID: &cluster.ID,
		}
		if err := tx.Create(&page).Error; err != nil {
			return fmt.Errorf("failed to create main page: %w", err)
		}
		version := PageVersion{
			PageID:       page.ID,
			EditorUserID: creatorID,
			Title:        fmt.Sprintf("Main page for the %s community", name),
			Content:      "There is nothing here yet...",
		}
		if err := tx.Create(&version).Error; err != nil {
			return fmt.Errorf("failed to create main page version: %w", err)
		}

		sub := ClusterSubscription{UserID: creatorID, ClusterID: cluster.ID, Role: RoleAdmin}
		if err := tx.Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to add creator as admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cluster, nil
}

func (s *CommunityService) officialCluster(tx *gorm.DB, nodeID uint) (*Cluster, error) {
	var cluster Cluster
	err := tx.Where("parent_node_id = ? AND is_official_cluster = ?", nodeID, true).First(&cluster).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommunityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	return &cluster, nil
}

// GetCommunity returns the official cluster of nodeID.
func (s *CommunityService) GetCommunity(nodeID uint) (*Cluster, error) {
	return s.officialCluster(s.db, nodeID)
}

// UpdateDescription replaces the description of the community of nodeID.
// Descriptions over MaxDescriptionLength characters are refused unless
// override is set.
func (s *CommunityService) UpdateDescription(nodeID uint, description string, override bool) (*Cluster, error) {
	if !override && utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}

	cluster, err := s.officialCluster(s.db, nodeID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(cluster).Update("description", description).Error; err != nil {
		return nil, fmt.Errorf("failed to update description: %w", err)
	}
	cluster.Description = description
	return cluster, nil
}

// DeleteDiscussion removes a discussion together with its thread, comments
// and replies.
func (s *CommunityService) DeleteDiscussion(discussionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var discussion Discussion
		err := tx.First(&discussion, discussionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscussionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get discussion: %w", err)
		}

		comments := tx.Model(&Comment{}).Select("id").Where("thread_id = ?", discussion.ThreadID)
		if err := tx.Where("comment_id IN (?)", comments).Delete(&Reply{}).Error; err != nil {
			return fmt.Errorf("failed to delete replies: %w", err)
		}
		if err := tx.Where("thread_id = ?", discussion.ThreadID).Delete(&Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Delete(&discussion).Error; err != nil {
			return fmt.Errorf("failed to delete discussion: %w", err)
		}
		if err := tx.Delete(&Thread{}, discussion.ThreadID).Error; err != nil {
			return fmt.Errorf("failed to delete thread: %w", err)
		}
		return nil
	})
}

func userByUsername(tx *gorm.DB, username string) (*models.User, error) {
	var user models.User
	err := tx.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// AddAdmin makes username an admin of the community of nodeID, promoting an
// existing membership or creating a new one.
func (s *CommunityService) AddAdmin(nodeID uint, username string) (*Cluster, error) {
	var cluster *Cluster
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := userByUsername(tx, username)
		if err != nil {
			return err
		}
		cluster, err = s.officialCluster(tx, nodeID)
		if err != nil {
			return err
		}

		var sub ClusterSubscription
		err = tx.Where("user_id = ? AND cluster_id = ?", user.ID, cluster.ID).First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = ClusterSubscription{UserID: user.ID, ClusterID: cluster.ID, Role: RoleAdmin}
			return tx.Create(&sub).Error
		case err != nil:
			return fmt.Errorf("failed to get subscription: %w", err)
		case sub.Role == RoleAdmin:
			return ErrAlreadyAdmin
		default:
			return tx.Model(&sub).Update("role", RoleAdmin).Error
		}
	})
	if err != nil {
		return nil, err
	}
	return cluster, nil
}

// RemoveAdmin demotes username to a plain member of the community of nodeID.
func (s *CommunityService) RemoveAdmin(nodeID uint, username string) (*Cluster, error) {
	var cluster *Cluster
	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := userByUsername(tx, username)
		if err != nil {
			return err
		}
		cluster, err = s.officialCluster(tx, nodeID)
		if err != nil {
			return err
		}

		var sub ClusterSubscription
		err = tx.Where("user_id = ? AND cluster_id = ?", user.ID, cluster.ID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotAdmin
		}
		if err != nil {
			return fmt.Errorf("failed to get subscription: %w", err)
		}
		if sub.Role != RoleAdmin {
			return ErrNotAdmin
		}
		return tx.Model(&sub).Update("role", RoleMember).Error
	})
	if err != nil {
		return nil, err
	}
	return cluster, nil
}

// IncompleteCommunities lists official communities that are not fully set up,
// ordered by id.
func (s *CommunityService) IncompleteCommunities() ([]IncompleteCommunity, error) {
	var clusters []Cluster
	if err := s.db.Where("is_official_cluster = ?", true).Order("id ASC").Find(&clusters).Error; err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}

	var withDiscussions []uint
	if err := s.db.Model(&Discussion{}).Distinct("owner_cluster_id").Pluck("owner_cluster_id", &withDiscussions).Error; err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	hasDiscussions := make(map[uint]bool, len(withDiscussions))
	for _, id := range withDiscussions {
		hasDiscussions[id] = true
	}

	var result []IncompleteCommunity
	for _, cluster := range clusters {
		mainPage, err := s.latestMainPageContent(cluster.ID)
		if err != nil {
			return nil, err
		}
		nonMan, err := s.hasNonManAdmin(cluster.ID)
		if err != nil {
			return nil, err
		}

		row := IncompleteCommunity{
			ID:                   cluster.ID,
			ParentNodeID:         cluster.ParentNodeID,
			Name:                 cluster.Name,
			URL:                  s.communityURL(&cluster),
			CreatedAt:            cluster.CreatedAt,
			HasDiscussions:       hasDiscussions[cluster.ID],
			HasDescriptionLength: utf8.RuneCountInString(cluster.Description) > completeContentLength,
			HasMainPageLength:    utf8.RuneCountInString(mainPage) > completeContentLength,
			HasNonManAdmin:       nonMan,
		}
		if !row.complete() {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *CommunityService) communityURL(c *Cluster) string {
	return fmt.Sprintf("%s/community/%d/%s", s.baseURL, c.ParentNodeID, c.Slug)
}

func (s *CommunityService) latestMainPageContent(clusterID uint) (string, error) {
	var version PageVersion
	err := s.db.Model(&PageVersion{}).
		Joins("JOIN pages ON pages.id = page_versions.page_id").
		Where("pages.owner_cluster_id = ? AND pages.type = ?", clusterID, PageTypeMain).
		Order("page_versions.id DESC").
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get main page: %w", err)
	}
	return version.Content, nil
}

func (s *CommunityService) hasNonManAdmin(clusterID uint) (bool, error) {
	var n int64
	err := s.db.Model(&models.User{}).
		Joins("JOIN cluster_subscriptions ON cluster_subscriptions.user_id = users.id").
		Where("cluster_subscriptions.cluster_id = ? AND cluster_subscriptions.role = ?", clusterID, RoleAdmin).
		Where("users.gender NOT IN ?", []string{"Man", "Male"}).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check admins: %w", err)
	}
	return n > 0, nil
}

func (s *CommunityService) clusterExists(clusterID uint) error {
	var n int64
	if err := s.db.Model(&Cluster{}).Where("id = ?", clusterID).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to get community: %w", err)
	}
	if n == 0 {
		return ErrCommunityNotFound
	}
	return nil
}

func (s *CommunityService) subscribers(v *viewer.Context, clusterID uint, role ClusterRole) ([]models.User, error) {
	if err := s.clusterExists(clusterID); err != nil {
		return nil, err
	}

	query := s.db.Model(&ClusterSubscription{}).
		Scopes(visibility.UsersColumnVisible(v, "user_id")).
		Where("cluster_subscriptions.cluster_id = ?", clusterID)
	if role != "" {
		query = query.Where("cluster_subscriptions.role = ?", role)
	}

	var subs []ClusterSubscription
	if err := query.Preload("User").Order("cluster_subscriptions.id ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	users := make([]models.User, len(subs))
	for i := range subs {
		users[i] = subs[i].User
	}
	return users, nil
}

// ListMembers returns the members of a cluster that v can see, admins included.
func (s *CommunityService) ListMembers(v *viewer.Context, clusterID uint) ([]models.User, error) {
	return s.subscribers(v, clusterID, "")
}

func (s *CommunityService) ListAdmins(v *viewer.Context, clusterID uint) ([]models.User, error) {
	return s.subscribers(v, clusterID, RoleAdmin)
}

// ListDiscussions returns the discussions of a cluster whose creator v can see,
// newest first.
func (s *CommunityService) ListDiscussions(v *viewer.Context, clusterID uint) ([]Discussion, error) {
	if err := s.clusterExists(clusterID); err != nil {
		return nil, err
	}

	var discussions []Discussion
	err := s.db.Model(&Discussion{}).
		Scopes(visibility.UsersColumnVisible(v, "creator_user_id")).
		Where("discussions.owner_cluster_id = ?", clusterID).
		Order("discussions.id DESC").
		Find(&discussions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	return discussions, nil
}

// Slugify turns a community name into the lower-case, dash-separated form
// used in community URLs.
func Slugify(name string) string {
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "community"
	}
	return slug
}
