package domain

import "time"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

// User is a community member as served by the classroom API.
type User struct {
	ID        string    `json:"_id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	Role      UserRole  `json:"role"`
	Type      string    `json:"type"`
	Confirmed bool      `json:"confirmed"`
	Education Education `json:"education"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Education holds enrollment metadata attached to a user.
type Education struct {
	Major          string  `json:"major"`
	EnrollmentYear string  `json:"enrollmentYear"`
	StudentID      string  `json:"studentId"`
	SchoolID       string  `json:"schoolId"`
	School         School  `json:"school"`
	AdvisorID      string  `json:"advisorId"`
	Advisor        Advisor `json:"advisor"`
	Image          string  `json:"image"`
}

type School struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Province  string    `json:"province"`
	Logo      string    `json:"logo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Advisor struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

type Company struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Province  string    `json:"province"`
	Logo      string    `json:"logo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Teacher struct {
	ID        string    `json:"_id"`
	No        int       `json:"no"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Post is a feed entry (the service calls it a "status").
// HasLiked is relative to the authenticated user; when HasLiked is true
// LikeCount counts that like, so LikeCount >= 1.
type Post struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	CreatedBy User      `json:"createdBy"`
	Like      []string  `json:"like"`
	LikeCount int       `json:"likeCount"`
	HasLiked  bool      `json:"hasLiked"`
	Comments  []Comment `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Comment is append-only per post from the client's point of view.
type Comment struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	CreatedBy User      `json:"createdBy"`
	Like      []string  `json:"like"`
	CreatedAt time.Time `json:"createdAt"`
}

// Job is a job-board posting outside the feed mutation path.
type Job struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Company     Company   `json:"company"`
	Position    string    `json:"position"`
	Description string    `json:"description"`
	Salary      float64   `json:"salary"`
	Location    string    `json:"location"`
	Type        string    `json:"type"`
	CreatedBy   User      `json:"createdBy"`
	Applicants  []string  `json:"applicants"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Session is the credential plus the profile it belongs to.
// Token and User are present together or not at all.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Valid reports whether the session holds a complete token/user pair.
func (s Session) Valid() bool {
	return s.Token != "" && s.User.ID != ""
}
