package service

import (
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/spark-repository/spark-api/internal/entity"
)

const studiesIndex = "studies"

// StudyIndexer mirrors the published catalog into Meilisearch. Indexing is a
// best-effort side effect: the database stays the source of truth and callers
// only log indexing failures.
type StudyIndexer interface {
	IndexStudy(study *entity.Study) error
	RemoveStudy(id string) error
	GenerateSearchToken() (string, error)
}

type studyIndexer struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
}

func NewStudyIndexer(client meilisearch.ServiceManager) StudyIndexer {
	s := &studyIndexer{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *studyIndexer) initIndexes() {
	filterableAttrs := []string{"category_id", "department", "year"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(studiesIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update studies filterable attributes: %v", err)
	}

	sortableAttrs := []string{"published_at", "date_completed"}
	if _, err := s.client.Index(studiesIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update studies sortable attributes: %v", err)
	}

	log.Println("Meilisearch studies index initialized")
}

func (s *studyIndexer) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{Limit: 20})
	if err != nil {
		log.Printf("Failed to get meilisearch keys: %v", err)
		return
	}

	for _, key := range resp.Results {
		if key.Name == "CatalogTokenSigner" {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	expiry := time.Now().AddDate(100, 0, 0)
	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Key to sign catalog search tokens",
		Name:        "CatalogTokenSigner",
		Actions:     []string{"search"},
		Indexes:     []string{studiesIndex},
		ExpiresAt:   expiry,
	})
	if err != nil {
		log.Printf("Failed to create signing key: %v", err)
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
}

type meiliStudyDoc struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Adviser       string   `json:"adviser"`
	Keywords      []string `json:"keywords"`
	CoAuthors     []string `json:"co_authors"`
	AuthorName    string   `json:"author_name"`
	CategoryID    string   `json:"category_id"`
	CategoryName  string   `json:"category_name"`
	Department    string   `json:"department"`
	Year          int      `json:"year"`
	DateCompleted int64    `json:"date_completed"`
	PublishedAt   int64    `json:"published_at"`
}

// cleanForIndex strips any markup that slipped into free-text fields so it
// never surfaces in search snippets.
func (s *studyIndexer) cleanForIndex(text string) string {
	text = strings.ReplaceAll(text, "</p>", " ")
	text = strings.ReplaceAll(text, "<br>", " ")
	clean := html.UnescapeString(s.sanitizer.Sanitize(text))
	return strings.Join(strings.Fields(clean), " ")
}

func (s *studyIndexer) IndexStudy(study *entity.Study) error {
	doc := meiliStudyDoc{
		ID:            study.ID.String(),
		Title:         s.cleanForIndex(study.Title),
		Abstract:      s.cleanForIndex(study.Abstract),
		Adviser:       study.Adviser,
		Keywords:      study.Keywords,
		CoAuthors:     study.CoAuthors,
		AuthorName:    study.Author.FullName,
		Year:          study.DateCompleted.Year(),
		DateCompleted: study.DateCompleted.Unix(),
	}

	if study.CategoryID != nil {
		doc.CategoryID = study.CategoryID.String()
		doc.CategoryName = study.Category.Name
	}
	if study.Department != nil {
		doc.Department = *study.Department
	}
	if study.PublishedAt != nil {
		doc.PublishedAt = study.PublishedAt.Unix()
	}

	task, err := s.client.Index(studiesIndex).AddDocuments([]meiliStudyDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed study %s, task id: %d", study.ID, task.TaskUID)
	return nil
}

func (s *studyIndexer) RemoveStudy(id string) error {
	_, err := s.client.Index(studiesIndex).DeleteDocument(id)
	return err
}

// GenerateSearchToken issues a short-lived tenant token for the public
// catalog. The index only ever holds published studies, so the token carries
// no filter rules.
func (s *studyIndexer) GenerateSearchToken() (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	searchRules := map[string]any{
		studiesIndex: map[string]any{},
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, searchRules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

func strPtr(s string) *string {
	return &s
}
