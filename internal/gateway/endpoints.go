package gateway

import (
	"context"
	"net/http"

	"classfeed/pkg/domain"
)

// ProfilePatch is a partial profile update; nil fields are left untouched
// by the service.
type ProfilePatch struct {
	Firstname *string           `json:"firstname,omitempty"`
	Lastname  *string           `json:"lastname,omitempty"`
	Image     *string           `json:"image,omitempty"`
	Education *domain.Education `json:"education,omitempty"`
}

// JobDraft is the payload for creating or replacing a job posting.
type JobDraft struct {
	Title       string  `json:"title"`
	CompanyID   string  `json:"companyId,omitempty"`
	Position    string  `json:"position"`
	Description string  `json:"description"`
	Salary      float64 `json:"salary"`
	Location    string  `json:"location"`
	Type        string  `json:"type"`
}

// signinData mirrors the signin response: the profile with the token inline.
type signinData struct {
	domain.User
	Token string `json:"token"`
}

// SignIn exchanges credentials for a token and the owning profile.
// A 2xx response without a token is a server-shape error; the service is
// expected to always include one on success.
func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var data signinData
	if err := c.doJSON(ctx, http.MethodPost, "/signin", payload, &data); err != nil {
		return domain.Session{}, err
	}
	if data.Token == "" {
		return domain.Session{}, &APIError{Kind: KindServer, Message: "no token in signin response"}
	}
	return domain.Session{Token: data.Token, User: data.User}, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile applies a partial profile update and returns the replacement.
func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (domain.User, error) {
	var user domain.User
	if err := c.doJSON(ctx, http.MethodPatch, "/profile", patch, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Statuses fetches the full feed in server order. The service has no
// incremental sync protocol; this is always the whole collection.
func (c *Client) Statuses(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Status fetches a single post by id.
func (c *Client) Status(ctx context.Context, id string) (domain.Post, error) {
	var post domain.Post
	if err := c.doJSON(ctx, http.MethodGet, "/status/"+id, nil, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// CreateStatus publishes a new post and returns the server's record.
func (c *Client) CreateStatus(ctx context.Context, content string) (domain.Post, error) {
	payload := map[string]string{"content": content}
	var post domain.Post
	if err := c.doJSON(ctx, http.MethodPost, "/status", payload, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// UpdateStatus edits a post's content. The service may not implement this
// endpoint; that surfaces as a server-class error, never a crash.
func (c *Client) UpdateStatus(ctx context.Context, id, content string) (domain.Post, error) {
	payload := map[string]string{"content": content}
	var post domain.Post
	if err := c.doJSON(ctx, http.MethodPatch, "/status/"+id, payload, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// DeleteStatus removes a post.
func (c *Client) DeleteStatus(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/status/"+id, nil, nil)
}

// Like marks a post as liked and returns the server-confirmed post.
func (c *Client) Like(ctx context.Context, statusID string) (domain.Post, error) {
	payload := map[string]string{"statusId": statusID}
	var post domain.Post
	if err := c.doJSON(ctx, http.MethodPost, "/like", payload, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// Unlike removes a like. The service expects the target in a DELETE body.
func (c *Client) Unlike(ctx context.Context, statusID string) (domain.Post, error) {
	payload := map[string]string{"statusId": statusID}
	var post domain.Post
	if err := c.doJSON(ctx, http.MethodDelete, "/unlike", payload, &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

// AddComment appends a comment to a post.
func (c *Client) AddComment(ctx context.Context, statusID, content string) error {
	payload := map[string]string{"statusId": statusID, "content": content}
	return c.doJSON(ctx, http.MethodPost, "/comment", payload, nil)
}

// DeleteComment removes a comment by its own id.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/comment/"+commentID, nil, nil)
}

// Class fetches the member roster for an enrollment year.
func (c *Client) Class(ctx context.Context, year string) ([]domain.User, error) {
	var members []domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/class/"+year, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Schools lists partner schools.
func (c *Client) Schools(ctx context.Context) ([]domain.School, error) {
	var schools []domain.School
	if err := c.doJSON(ctx, http.MethodGet, "/school", nil, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

// School fetches one school by id.
func (c *Client) School(ctx context.Context, id string) (domain.School, error) {
	var school domain.School
	if err := c.doJSON(ctx, http.MethodGet, "/school/"+id, nil, &school); err != nil {
		return domain.School{}, err
	}
	return school, nil
}

// Companies lists partner companies.
func (c *Client) Companies(ctx context.Context) ([]domain.Company, error) {
	var companies []domain.Company
	if err := c.doJSON(ctx, http.MethodGet, "/company", nil, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// Company fetches one company by id.
func (c *Client) Company(ctx context.Context, id string) (domain.Company, error) {
	var company domain.Company
	if err := c.doJSON(ctx, http.MethodGet, "/company/"+id, nil, &company); err != nil {
		return domain.Company{}, err
	}
	return company, nil
}

// Teachers lists faculty members.
func (c *Client) Teachers(ctx context.Context) ([]domain.Teacher, error) {
	var teachers []domain.Teacher
	if err := c.doJSON(ctx, http.MethodGet, "/teacher", nil, &teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

// Jobs lists job-board postings.
func (c *Client) Jobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.doJSON(ctx, http.MethodGet, "/job", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CreateJob publishes a job posting.
func (c *Client) CreateJob(ctx context.Context, draft JobDraft) (domain.Job, error) {
	var job domain.Job
	if err := c.doJSON(ctx, http.MethodPost, "/job", draft, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// UpdateJob edits a job posting.
func (c *Client) UpdateJob(ctx context.Context, id string, draft JobDraft) (domain.Job, error) {
	var job domain.Job
	if err := c.doJSON(ctx, http.MethodPatch, "/job/"+id, draft, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// DeleteJob removes a job posting.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/job/"+id, nil, nil)
}
