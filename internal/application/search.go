package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/tutorhub-user-service/internal/domain/entity"
)

const esTimeout = 3 * time.Second

// UserDocument is the read model stored in Elasticsearch.
type UserDocument struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio,omitempty"`
	Skills       []string  `json:"skills"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	Completeness int       `json:"completeness"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewUserDocument(u *entity.User) UserDocument {
	p := u.Profile()
	skills := make([]string, 0, p.SkillCount())
	for _, sk := range p.Skills() {
		skills = append(skills, sk.Name)
	}
	return UserDocument{
		ID:           u.ID(),
		Email:        u.Email().String(),
		FirstName:    p.FirstName(),
		LastName:     p.LastName(),
		Name:         p.Name().Full(),
		Bio:          p.Bio(),
		Skills:       skills,
		Role:         u.Role().String(),
		Status:       u.Status().String(),
		Completeness: u.Completeness(),
		CreatedAt:    u.CreatedAt(),
		UpdatedAt:    u.UpdatedAt(),
	}
}

const usersIndexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "email":        {"type": "keyword"},
      "first_name":   {"type": "text"},
      "last_name":    {"type": "text"},
      "name":         {"type": "text"},
      "bio":          {"type": "text"},
      "skills":       {"type": "text"},
      "role":         {"type": "keyword"},
      "status":       {"type": "keyword"},
      "completeness": {"type": "integer"},
      "created_at":   {"type": "date"},
      "updated_at":   {"type": "date"}
    }
  }
}`

// EnsureUsersIndex creates the users index with its mapping when it does not exist yet.
func (s *Service) EnsureUsersIndex(ctx context.Context) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{s.ESUsersIndex}}.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.ESUsersIndex, err)
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: s.ESUsersIndex, Body: strings.NewReader(usersIndexMapping)}.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.ESUsersIndex, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.ESUsersIndex, res.Status())
	}
	return nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	b, err := json.Marshal(NewUserDocument(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID(), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID()).Warn("es index failed")
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID()).Warn("es index response error")
	}
	return nil
}

// SearchUsers runs a multi_match query over email, names and skills.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) (docs []UserDocument, err error) {
	defer func() { s.Metrics.observe("search_users", err) }()

	if s.ES == nil || s.ESUsersIndex == "" {
		return []UserDocument{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name", "first_name", "last_name", "skills"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, esTimeout)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", s.ESUsersIndex, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string       `json:"_id"`
				Source UserDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	docs = make([]UserDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, nil
}
