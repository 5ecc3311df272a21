package store

import (
	"sort"
	"sync"
	"time"

	"mythos/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu sync.RWMutex

	users         map[string]domain.User
	usersByEmail  map[string]string
	projects      map[string]domain.Project
	chapters      map[string]domain.Chapter
	versions      map[string]domain.ChapterVersion
	characters    map[string]domain.Character
	worldElements map[string]domain.WorldElement
	chatMessages  map[string]domain.ChatMessage
	shares        map[string]domain.ProjectShare

	// insertion order, for deterministic listings
	projectOrder      []string
	chapterOrder      []string
	versionOrder      []string
	characterOrder    []string
	worldElementOrder []string
	chatOrder         []string
	shareOrder        []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		usersByEmail:  make(map[string]string),
		projects:      make(map[string]domain.Project),
		chapters:      make(map[string]domain.Chapter),
		versions:      make(map[string]domain.ChapterVersion),
		characters:    make(map[string]domain.Character),
		worldElements: make(map[string]domain.WorldElement),
		chatMessages:  make(map[string]domain.ChatMessage),
		shares:        make(map[string]domain.ProjectShare),
	}
}

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.users[u.ID]; ok && old.Email != u.Email {
		delete(s.usersByEmail, old.Email)
	}
	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) HasUserEmail(email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.usersByEmail[email]
	return ok, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) SaveProject(p domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		s.projectOrder = append(s.projectOrder, p.ID)
	}
	s.projects[p.ID] = p
	return nil
}

func (s *MemoryStore) GetProject(id string) (domain.Project, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	return p, ok, nil
}

func (s *MemoryStore) ListProjectsForIdentity(userID, email string) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []domain.Project{}
	for _, id := range s.projectOrder {
		p, ok := s.projects[id]
		if !ok {
			continue
		}
		if p.UserID == userID || contains(p.Collaborators, email) {
			res = append(res, p)
		}
	}
	return res, nil
}

func (s *MemoryStore) ProjectChildCounts(projectID string) (ChildCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts ChildCounts
	for _, c := range s.chapters {
		if c.ProjectID == projectID {
			counts.Chapters++
		}
	}
	for _, c := range s.characters {
		if c.ProjectID == projectID {
			counts.Characters++
		}
	}
	for _, e := range s.worldElements {
		if e.ProjectID == projectID {
			counts.WorldElements++
		}
	}
	return counts, nil
}

func (s *MemoryStore) SetProjectWordCount(projectID string, wordCount int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil
	}
	p.WordCount = wordCount
	p.UpdatedAt = updatedAt
	s.projects[projectID] = p
	return nil
}

func (s *MemoryStore) DeleteProjectCascade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chapterIDs := map[string]bool{}
	for cid, c := range s.chapters {
		if c.ProjectID == id {
			chapterIDs[cid] = true
			delete(s.chapters, cid)
		}
	}
	for vid, v := range s.versions {
		if chapterIDs[v.ChapterID] {
			delete(s.versions, vid)
		}
	}
	for cid, c := range s.characters {
		if c.ProjectID == id {
			delete(s.characters, cid)
		}
	}
	for eid, e := range s.worldElements {
		if e.ProjectID == id {
			delete(s.worldElements, eid)
		}
	}
	for mid, m := range s.chatMessages {
		if m.ProjectID == id {
			delete(s.chatMessages, mid)
		}
	}
	for sid, sh := range s.shares {
		if sh.ProjectID == id {
			delete(s.shares, sid)
		}
	}
	delete(s.projects, id)
	return nil
}

func (s *MemoryStore) SaveChapter(c domain.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chapters[c.ID]; !ok {
		s.chapterOrder = append(s.chapterOrder, c.ID)
	}
	s.chapters[c.ID] = c
	return nil
}

func (s *MemoryStore) GetChapter(id string) (domain.Chapter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chapters[id]
	return c, ok, nil
}

func (s *MemoryStore) ListChaptersByProject(projectID string) ([]domain.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []domain.Chapter{}
	for _, id := range s.chapterOrder {
		c, ok := s.chapters[id]
		if ok && c.ProjectID == projectID {
			res = append(res, c)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	return res, nil
}

func (s *MemoryStore) SumChapterWordCounts(projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := 0
	for _, c := range s.chapters {
		if c.ProjectID == projectID {
			sum += c.WordCount
		}
	}
	return sum, nil
}

func (s *MemoryStore) DeleteChapter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chapters, id)
	return nil
}

func (s *MemoryStore) AppendChapterVersion(v domain.ChapterVersion) (domain.ChapterVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, existing := range s.versions {
		if existing.ChapterID == v.ChapterID && existing.Version > max {
			max = existing.Version
		}
	}
	v.Version = max + 1
	s.versions[v.ID] = v
	s.versionOrder = append(s.versionOrder, v.ID)
	return v, nil
}

func (s *MemoryStore) ListChapterVersions(chapterID string) ([]domain.ChapterVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []domain.ChapterVersion{}
	// newest first
	for i := len(s.versionOrder) - 1; i >= 0; i-- {
		v, ok := s.versions[s.versionOrder[i]]
		if ok && v.ChapterID == chapterID {
			res = append(res, v)
		}
	}
	return res, nil
}

func (s *MemoryStore) GetChapterVersion(chapterID, versionID string) (domain.ChapterVersion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[versionID]
	if !ok || v.ChapterID != chapterID {
		return domain.ChapterVersion{}, false, nil
	}
	return v, true, nil
}

func (s *MemoryStore) SaveCharacter(c domain.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[c.ID]; !ok {
		s.characterOrder = append(s.characterOrder, c.ID)
	}
	s.characters[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCharacter(id string) (domain.Character, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	return c, ok, nil
}

func (s *MemoryStore) ListCharactersByProject(projectID string) ([]domain.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []domain.Character{}
	for _, id := range s.characterOrder {
		c, ok := s.characters[id]
		if ok && c.ProjectID == projectID {
			res = append(res, c)
		}
	}
	return res, nil
}

func (s *MemoryStore) DeleteCharacter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.characters, id)
	return nil
}

func (s *MemoryStore) SaveWorldElement(e domain.WorldElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worldElements[e.ID]; !ok {
		s.worldElementOrder = append(s.worldElementOrder, e.ID)
	}
	s.worldElements[e.ID] = e
	return nil
}

func (s *MemoryStore) GetWorldElement(id string) (domain.WorldElement, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.worldElements[id]
	return e, ok, nil
}

func (s *MemoryStore) ListWorldElementsByProject(projectID, elementType string) ([]domain.WorldElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []domain.WorldElement{}
	for _, id := range s.worldElementOrder {
		e, ok := s.worldElements[id]
		if !ok || e.ProjectID != projectID {
			continue
		}
		if elementType != "" && string(e.Type) != elementType {
			continue
		}
		res = append(res, e)
	}
	return res, nil
}

func (s *MemoryStore) DeleteWorldElement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.worldElements, id)
	return nil
}

func (s *MemoryStore) AppendChatMessage(msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatMessages[msg.ID] = msg
	s.chatOrder = append(s.chatOrder, msg.ID)
	return nil
}

func (s *MemoryStore) ListChatMessages(projectID, chapterID string, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return []domain.ChatMessage{}, nil
	}
	matched := []domain.ChatMessage{}
	for _, id := range s.chatOrder {
		m, ok := s.chatMessages[id]
		if ok && m.ProjectID == projectID && m.ChapterID == chapterID {
			matched = append(matched, m)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (s *MemoryStore) GetChatMessage(projectID, messageID string) (domain.ChatMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.chatMessages[messageID]
	if !ok || m.ProjectID != projectID {
		return domain.ChatMessage{}, false, nil
	}
	return m, true, nil
}

func (s *MemoryStore) DeleteChatMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chatMessages, id)
	return nil
}

func (s *MemoryStore) SaveShare(share domain.ProjectShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shares[share.ID]; !ok {
		s.shareOrder = append(s.shareOrder, share.ID)
	}
	s.shares[share.ID] = share
	return nil
}

func (s *MemoryStore) GetShareByToken(token string) (domain.ProjectShare, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shares {
		if sh.ShareToken == token {
			return sh, true, nil
		}
	}
	return domain.ProjectShare{}, false, nil
}

func (s *MemoryStore) ListSharesByProject(projectID string) ([]domain.ProjectShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []domain.ProjectShare{}
	for _, id := range s.shareOrder {
		sh, ok := s.shares[id]
		if ok && sh.ProjectID == projectID {
			res = append(res, sh)
		}
	}
	return res, nil
}

func (s *MemoryStore) DeleteShare(projectID, shareID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shares[shareID]
	if ok && sh.ProjectID == projectID {
		delete(s.shares, shareID)
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
