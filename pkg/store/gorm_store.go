package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"mythos/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&ProjectModel{},
		&ChapterModel{},
		&ChapterVersionModel{},
		&CharacterModel{},
		&WorldElementModel{},
		&ChatMessageModel{},
		&ProjectShareModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "password_hash", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveProject stores or updates a project.
func (s *GormStore) SaveProject(p domain.Project) error {
	model := projectToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "genre", "collaborators", "word_count", "updated_at"}),
	}).Create(&model).Error
}

// GetProject retrieves a project.
func (s *GormStore) GetProject(id string) (domain.Project, bool, error) {
	var model ProjectModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Project{}, false, nil
		}
		return domain.Project{}, false, err
	}
	return projectFromModel(model), true, nil
}

// ListProjectsForIdentity returns projects the user owns or collaborates on.
// Collaborator membership uses JSONB containment against the email list.
func (s *GormStore) ListProjectsForIdentity(userID, email string) ([]domain.Project, error) {
	member, err := json.Marshal([]string{email})
	if err != nil {
		return nil, err
	}
	var models []ProjectModel
	if err := s.db.
		Where("user_id = ? OR collaborators @> ?", userID, string(member)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Project, 0, len(models))
	for _, m := range models {
		res = append(res, projectFromModel(m))
	}
	return res, nil
}

// ProjectChildCounts tallies a project's chapters, characters, and world elements.
func (s *GormStore) ProjectChildCounts(projectID string) (ChildCounts, error) {
	var counts ChildCounts
	var n int64
	if err := s.db.Model(&ChapterModel{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		return counts, err
	}
	counts.Chapters = int(n)
	if err := s.db.Model(&CharacterModel{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		return counts, err
	}
	counts.Characters = int(n)
	if err := s.db.Model(&WorldElementModel{}).Where("project_id = ?", projectID).Count(&n).Error; err != nil {
		return counts, err
	}
	counts.WorldElements = int(n)
	return counts, nil
}

// SetProjectWordCount persists the recomputed aggregate.
func (s *GormStore) SetProjectWordCount(projectID string, wordCount int, updatedAt time.Time) error {
	return s.db.Model(&ProjectModel{}).
		Where("id = ?", projectID).
		Updates(map[string]any{
			"word_count": wordCount,
			"updated_at": updatedAt,
		}).Error
}

// DeleteProjectCascade removes the project and all dependent rows in one
// transaction: world elements, characters, chapter versions, chapters,
// chat messages, and shares.
func (s *GormStore) DeleteProjectCascade(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		chapterIDs := tx.Model(&ChapterModel{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&ChapterVersionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&WorldElementModel{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CharacterModel{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ChapterModel{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ChatMessageModel{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ProjectShareModel{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&ProjectModel{}, "id = ?", id).Error
	})
}

// SaveChapter stores or updates a chapter.
func (s *GormStore) SaveChapter(c domain.Chapter) error {
	model := chapterToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "sort_order", "word_count", "updated_at"}),
	}).Create(&model).Error
}

// GetChapter retrieves a chapter.
func (s *GormStore) GetChapter(id string) (domain.Chapter, bool, error) {
	var model ChapterModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Chapter{}, false, nil
		}
		return domain.Chapter{}, false, err
	}
	return chapterFromModel(model), true, nil
}

// ListChaptersByProject returns chapters sorted by their explicit order.
func (s *GormStore) ListChaptersByProject(projectID string) ([]domain.Chapter, error) {
	var models []ChapterModel
	if err := s.db.
		Where("project_id = ?", projectID).
		Order("sort_order ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Chapter, 0, len(models))
	for _, m := range models {
		res = append(res, chapterFromModel(m))
	}
	return res, nil
}

// SumChapterWordCounts returns the aggregate word count for a project.
func (s *GormStore) SumChapterWordCounts(projectID string) (int, error) {
	var sum sql.NullInt64
	if err := s.db.Model(&ChapterModel{}).
		Where("project_id = ?", projectID).
		Select("SUM(word_count)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return int(sum.Int64), nil
}

// DeleteChapter removes a chapter row. Version history is retained.
func (s *GormStore) DeleteChapter(id string) error {
	return s.db.Delete(&ChapterModel{}, "id = ?", id).Error
}

// AppendChapterVersion assigns the next per-chapter version number and
// inserts the snapshot. The read-max and insert run in one transaction so
// concurrent saves for the same chapter cannot claim the same number; the
// unique (chapter_id, version) index backs this up.
func (s *GormStore) AppendChapterVersion(v domain.ChapterVersion) (domain.ChapterVersion, error) {
	model := chapterVersionToModel(v)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var max sql.NullInt64
		if err := tx.Model(&ChapterVersionModel{}).
			Where("chapter_id = ?", v.ChapterID).
			Select("MAX(version)").
			Scan(&max).Error; err != nil {
			return err
		}
		model.Version = int(max.Int64) + 1
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.ChapterVersion{}, err
	}
	return chapterVersionFromModel(model), nil
}

// ListChapterVersions returns a chapter's versions newest first.
func (s *GormStore) ListChapterVersions(chapterID string) ([]domain.ChapterVersion, error) {
	var models []ChapterVersionModel
	if err := s.db.
		Where("chapter_id = ?", chapterID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChapterVersion, 0, len(models))
	for _, m := range models {
		res = append(res, chapterVersionFromModel(m))
	}
	return res, nil
}

// GetChapterVersion returns one version scoped to its chapter.
func (s *GormStore) GetChapterVersion(chapterID, versionID string) (domain.ChapterVersion, bool, error) {
	var model ChapterVersionModel
	if err := s.db.
		Where("chapter_id = ? AND id = ?", chapterID, versionID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChapterVersion{}, false, nil
		}
		return domain.ChapterVersion{}, false, err
	}
	return chapterVersionFromModel(model), true, nil
}

// SaveCharacter stores or updates a character.
func (s *GormStore) SaveCharacter(c domain.Character) error {
	model := characterToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "backstory", "traits", "relationships", "avatar", "updated_at"}),
	}).Create(&model).Error
}

// GetCharacter retrieves a character.
func (s *GormStore) GetCharacter(id string) (domain.Character, bool, error) {
	var model CharacterModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Character{}, false, nil
		}
		return domain.Character{}, false, err
	}
	return characterFromModel(model), true, nil
}

// ListCharactersByProject returns all characters of a project.
func (s *GormStore) ListCharactersByProject(projectID string) ([]domain.Character, error) {
	var models []CharacterModel
	if err := s.db.
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Character, 0, len(models))
	for _, m := range models {
		res = append(res, characterFromModel(m))
	}
	return res, nil
}

// DeleteCharacter removes a character row.
func (s *GormStore) DeleteCharacter(id string) error {
	return s.db.Delete(&CharacterModel{}, "id = ?", id).Error
}

// SaveWorldElement stores or updates a world element.
func (s *GormStore) SaveWorldElement(e domain.WorldElement) error {
	model := worldElementToModel(e)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "type", "description", "details", "updated_at"}),
	}).Create(&model).Error
}

// GetWorldElement retrieves a world element.
func (s *GormStore) GetWorldElement(id string) (domain.WorldElement, bool, error) {
	var model WorldElementModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.WorldElement{}, false, nil
		}
		return domain.WorldElement{}, false, err
	}
	return worldElementFromModel(model), true, nil
}

// ListWorldElementsByProject returns a project's world elements, optionally
// filtered by type.
func (s *GormStore) ListWorldElementsByProject(projectID, elementType string) ([]domain.WorldElement, error) {
	tx := s.db.Where("project_id = ?", projectID)
	if elementType != "" {
		tx = tx.Where("type = ?", elementType)
	}
	var models []WorldElementModel
	if err := tx.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.WorldElement, 0, len(models))
	for _, m := range models {
		res = append(res, worldElementFromModel(m))
	}
	return res, nil
}

// DeleteWorldElement removes a world element row.
func (s *GormStore) DeleteWorldElement(id string) error {
	return s.db.Delete(&WorldElementModel{}, "id = ?", id).Error
}

// AppendChatMessage records a chat message.
func (s *GormStore) AppendChatMessage(msg domain.ChatMessage) error {
	model := chatMessageToModel(msg)
	return s.db.Create(&model).Error
}

// ListChatMessages returns recent messages (newest first, then reversed to
// chronological). An empty chapterID selects general project chat only.
func (s *GormStore) ListChatMessages(projectID, chapterID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}
	tx := s.db.Where("project_id = ?", projectID)
	if chapterID == "" {
		tx = tx.Where("chapter_id IS NULL")
	} else {
		tx = tx.Where("chapter_id = ?", chapterID)
	}
	var models []ChatMessageModel
	if err := tx.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.ChatMessage, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		msgs = append(msgs, chatMessageFromModel(models[i]))
	}
	return msgs, nil
}

// GetChatMessage returns one message scoped to its project.
func (s *GormStore) GetChatMessage(projectID, messageID string) (domain.ChatMessage, bool, error) {
	var model ChatMessageModel
	if err := s.db.
		Where("project_id = ? AND id = ?", projectID, messageID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatMessage{}, false, nil
		}
		return domain.ChatMessage{}, false, err
	}
	return chatMessageFromModel(model), true, nil
}

// DeleteChatMessage removes a message row.
func (s *GormStore) DeleteChatMessage(id string) error {
	return s.db.Delete(&ChatMessageModel{}, "id = ?", id).Error
}

// SaveShare records a share link.
func (s *GormStore) SaveShare(share domain.ProjectShare) error {
	model := shareToModel(share)
	return s.db.Create(&model).Error
}

// GetShareByToken looks up a share by its opaque token.
func (s *GormStore) GetShareByToken(token string) (domain.ProjectShare, bool, error) {
	var model ProjectShareModel
	if err := s.db.Where("share_token = ?", token).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ProjectShare{}, false, nil
		}
		return domain.ProjectShare{}, false, err
	}
	return shareFromModel(model), true, nil
}

// ListSharesByProject returns all shares for a project.
func (s *GormStore) ListSharesByProject(projectID string) ([]domain.ProjectShare, error) {
	var models []ProjectShareModel
	if err := s.db.
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ProjectShare, 0, len(models))
	for _, m := range models {
		res = append(res, shareFromModel(m))
	}
	return res, nil
}

// DeleteShare removes a share scoped to its project.
func (s *GormStore) DeleteShare(projectID, shareID string) error {
	return s.db.
		Where("project_id = ? AND id = ?", projectID, shareID).
		Delete(&ProjectShareModel{}).Error
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func projectToModel(p domain.Project) ProjectModel {
	collaborators := p.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	raw, _ := json.Marshal(collaborators)
	return ProjectModel{
		ID:            p.ID,
		UserID:        p.UserID,
		Title:         p.Title,
		Description:   p.Description,
		Genre:         p.Genre,
		Collaborators: raw,
		WordCount:     p.WordCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func projectFromModel(m ProjectModel) domain.Project {
	collaborators := []string{}
	if len(m.Collaborators) > 0 {
		_ = json.Unmarshal(m.Collaborators, &collaborators)
	}
	return domain.Project{
		ID:            m.ID,
		UserID:        m.UserID,
		Title:         m.Title,
		Description:   m.Description,
		Genre:         m.Genre,
		Collaborators: collaborators,
		WordCount:     m.WordCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func chapterToModel(c domain.Chapter) ChapterModel {
	return ChapterModel{
		ID:        c.ID,
		ProjectID: c.ProjectID,
		Title:     c.Title,
		Content:   c.Content,
		Order:     c.Order,
		WordCount: c.WordCount,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func chapterFromModel(m ChapterModel) domain.Chapter {
	return domain.Chapter{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		Title:     m.Title,
		Content:   m.Content,
		Order:     m.Order,
		WordCount: m.WordCount,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func chapterVersionToModel(v domain.ChapterVersion) ChapterVersionModel {
	return ChapterVersionModel{
		ID:                v.ID,
		ChapterID:         v.ChapterID,
		Version:           v.Version,
		Title:             v.Title,
		Content:           v.Content,
		WordCount:         v.WordCount,
		AuthorID:          v.AuthorID,
		AuthorEmail:       v.AuthorEmail,
		ChangeDescription: v.ChangeDescription,
		CreatedAt:         v.CreatedAt,
	}
}

func chapterVersionFromModel(m ChapterVersionModel) domain.ChapterVersion {
	return domain.ChapterVersion{
		ID:                m.ID,
		ChapterID:         m.ChapterID,
		Version:           m.Version,
		Title:             m.Title,
		Content:           m.Content,
		WordCount:         m.WordCount,
		AuthorID:          m.AuthorID,
		AuthorEmail:       m.AuthorEmail,
		ChangeDescription: m.ChangeDescription,
		CreatedAt:         m.CreatedAt,
	}
}

func characterToModel(c domain.Character) CharacterModel {
	traits := c.Traits
	if traits == nil {
		traits = []string{}
	}
	relationships := c.Relationships
	if relationships == nil {
		relationships = []domain.CharacterRelationship{}
	}
	rawTraits, _ := json.Marshal(traits)
	rawRelationships, _ := json.Marshal(relationships)
	return CharacterModel{
		ID:            c.ID,
		ProjectID:     c.ProjectID,
		Name:          c.Name,
		Description:   c.Description,
		Backstory:     c.Backstory,
		Traits:        rawTraits,
		Relationships: rawRelationships,
		Avatar:        c.Avatar,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func characterFromModel(m CharacterModel) domain.Character {
	traits := []string{}
	if len(m.Traits) > 0 {
		_ = json.Unmarshal(m.Traits, &traits)
	}
	relationships := []domain.CharacterRelationship{}
	if len(m.Relationships) > 0 {
		_ = json.Unmarshal(m.Relationships, &relationships)
	}
	return domain.Character{
		ID:            m.ID,
		ProjectID:     m.ProjectID,
		Name:          m.Name,
		Description:   m.Description,
		Backstory:     m.Backstory,
		Traits:        traits,
		Relationships: relationships,
		Avatar:        m.Avatar,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func worldElementToModel(e domain.WorldElement) WorldElementModel {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, _ := json.Marshal(details)
	return WorldElementModel{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Name:        e.Name,
		Type:        string(e.Type),
		Description: e.Description,
		Details:     raw,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func worldElementFromModel(m WorldElementModel) domain.WorldElement {
	details := map[string]any{}
	if len(m.Details) > 0 {
		_ = json.Unmarshal(m.Details, &details)
	}
	return domain.WorldElement{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		Type:        domain.WorldElementType(m.Type),
		Description: m.Description,
		Details:     details,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func chatMessageToModel(msg domain.ChatMessage) ChatMessageModel {
	var chapterID *string
	if msg.ChapterID != "" {
		value := msg.ChapterID
		chapterID = &value
	}
	return ChatMessageModel{
		ID:          msg.ID,
		ProjectID:   msg.ProjectID,
		ChapterID:   chapterID,
		UserID:      msg.UserID,
		UserEmail:   msg.UserEmail,
		UserName:    msg.UserName,
		Message:     msg.Message,
		MessageType: string(msg.MessageType),
		CreatedAt:   msg.CreatedAt,
	}
}

func chatMessageFromModel(m ChatMessageModel) domain.ChatMessage {
	chapterID := ""
	if m.ChapterID != nil {
		chapterID = *m.ChapterID
	}
	return domain.ChatMessage{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		ChapterID:   chapterID,
		UserID:      m.UserID,
		UserEmail:   m.UserEmail,
		UserName:    m.UserName,
		Message:     m.Message,
		MessageType: domain.MessageType(m.MessageType),
		CreatedAt:   m.CreatedAt,
	}
}

func shareToModel(s domain.ProjectShare) ProjectShareModel {
	return ProjectShareModel{
		ID:         s.ID,
		ProjectID:  s.ProjectID,
		ShareToken: s.ShareToken,
		AccessType: string(s.AccessType),
		CreatedBy:  s.CreatedBy,
		ExpiresAt:  s.ExpiresAt,
		CreatedAt:  s.CreatedAt,
	}
}

func shareFromModel(m ProjectShareModel) domain.ProjectShare {
	return domain.ProjectShare{
		ID:         m.ID,
		ProjectID:  m.ProjectID,
		ShareToken: m.ShareToken,
		AccessType: domain.AccessType(m.AccessType),
		CreatedBy:  m.CreatedBy,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}
