package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"classfeed/internal/config"
	"classfeed/internal/credstore"
	"classfeed/internal/feed"
	"classfeed/internal/gateway"
	"classfeed/internal/mutate"
	"classfeed/internal/session"
	"classfeed/internal/util"
	"classfeed/pkg/domain"
)

const usage = `usage: classfeed <command> [args]

commands:
  login -email <email> -password <password>
  logout
  profile
  update-profile [-firstname ..] [-lastname ..] [-image ..]
  feed
  post <content>
  edit <post-id> <content>
  delete <post-id>
  like <post-id>
  comment <post-id> <content>
  uncomment <post-id> <comment-id>
  members <enrollment-year>
  directory
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg, err := config.Load(os.Getenv("CLASSFEED_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	timeout, err := config.ParseRequestTimeout(cfg.RequestTimeout)
	if err != nil {
		log.Fatalf("failed to parse request timeout: %v", err)
	}
	util.InitLogger(cfg.LogLevel)

	store, err := buildCredentialStore(cfg)
	if err != nil {
		log.Fatalf("failed to init credential store: %v", err)
	}

	client := gateway.New(cfg.BaseURL, cfg.APIKey, timeout)
	sessions := session.New(store, client)
	sessions.Attach(client)
	feedStore := feed.NewStore()
	engine := mutate.New(client, sessions, feedStore)

	ctx := context.Background()
	if err := sessions.Bootstrap(ctx); err != nil {
		// A transient failure keeps the stored credentials; the command
		// may still work if it needs no session.
		fmt.Fprintf(os.Stderr, "warning: session restore failed: %v\n", err)
	}

	if err := run(ctx, command, args, client, sessions, feedStore, engine); err != nil {
		fmt.Fprintf(os.Stderr, "classfeed: %v\n", err)
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	command string,
	args []string,
	client *gateway.Client,
	sessions *session.Manager,
	feedStore *feed.Store,
	engine *mutate.Engine,
) error {
	switch command {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *email == "" || *password == "" {
			return fmt.Errorf("login requires -email and -password")
		}
		user, err := sessions.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s %s <%s>\n", user.Firstname, user.Lastname, user.Email)
		return nil

	case "logout":
		if err := sessions.Logout(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "profile":
		user, ok := sessions.CurrentUser()
		if !ok {
			return session.ErrNotAuthenticated
		}
		printUser(user)
		return nil

	case "update-profile":
		fs := flag.NewFlagSet("update-profile", flag.ExitOnError)
		firstname := fs.String("firstname", "", "new first name")
		lastname := fs.String("lastname", "", "new last name")
		image := fs.String("image", "", "new avatar URL")
		if err := fs.Parse(args); err != nil {
			return err
		}
		patch := gateway.ProfilePatch{}
		if *firstname != "" {
			patch.Firstname = firstname
		}
		if *lastname != "" {
			patch.Lastname = lastname
		}
		if *image != "" {
			patch.Image = image
		}
		user, err := sessions.UpdateProfile(ctx, patch)
		if err != nil {
			return err
		}
		printUser(user)
		return nil

	case "feed":
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		for _, post := range feedStore.Snapshot() {
			printPost(post)
		}
		return nil

	case "post":
		if len(args) < 1 {
			return fmt.Errorf("post requires content")
		}
		return engine.CreatePost(ctx, strings.Join(args, " "))

	case "edit":
		if len(args) < 2 {
			return fmt.Errorf("edit requires a post id and content")
		}
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		return engine.EditPost(ctx, args[0], strings.Join(args[1:], " "))

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("delete requires a post id")
		}
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		return engine.DeletePost(ctx, args[0])

	case "like":
		if len(args) != 1 {
			return fmt.Errorf("like requires a post id")
		}
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		if err := engine.ToggleLike(ctx, args[0]); err != nil {
			return err
		}
		if post, ok := feedStore.Get(args[0]); ok {
			fmt.Printf("%s: liked=%v likes=%d\n", post.ID, post.HasLiked, post.LikeCount)
		}
		return nil

	case "comment":
		if len(args) < 2 {
			return fmt.Errorf("comment requires a post id and content")
		}
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		return engine.AddComment(ctx, args[0], strings.Join(args[1:], " "))

	case "uncomment":
		if len(args) != 2 {
			return fmt.Errorf("uncomment requires a post id and a comment id")
		}
		if err := engine.Refresh(ctx); err != nil {
			return err
		}
		return engine.DeleteComment(ctx, args[0], args[1])

	case "members":
		if len(args) != 1 {
			return fmt.Errorf("members requires an enrollment year")
		}
		members, err := client.Class(ctx, args[0])
		if err != nil {
			return err
		}
		for _, member := range members {
			fmt.Printf("%s %s <%s> %s\n", member.Firstname, member.Lastname, member.Email, member.Education.Major)
		}
		return nil

	case "directory":
		var (
			schools   []domain.School
			companies []domain.Company
			teachers  []domain.Teacher
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			schools, err = client.Schools(gctx)
			return err
		})
		g.Go(func() (err error) {
			companies, err = client.Companies(gctx)
			return err
		})
		g.Go(func() (err error) {
			teachers, err = client.Teachers(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
		for _, s := range schools {
			fmt.Printf("school   %-30s %s\n", s.Name, s.Province)
		}
		for _, c := range companies {
			fmt.Printf("company  %-30s %s\n", c.Name, c.Province)
		}
		for _, t := range teachers {
			fmt.Printf("teacher  %-30s %s\n", t.Name, t.Email)
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func buildCredentialStore(cfg config.FileConfig) (credstore.Store, error) {
	switch cfg.CredentialBackend {
	case "redis":
		return credstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword), nil
	default:
		if cfg.CredentialsSecret != "" {
			return credstore.NewSealedStore(cfg.CredentialsFile, cfg.CredentialsSecret)
		}
		return credstore.NewFileStore(cfg.CredentialsFile), nil
	}
}

func printUser(user domain.User) {
	fmt.Printf("%s %s <%s>\n", user.Firstname, user.Lastname, user.Email)
	if user.Education.Major != "" {
		fmt.Printf("  %s, class of %s\n", user.Education.Major, user.Education.EnrollmentYear)
	}
	if user.Education.School.Name != "" {
		fmt.Printf("  %s (%s)\n", user.Education.School.Name, user.Education.School.Province)
	}
}

func printPost(post domain.Post) {
	liked := " "
	if post.HasLiked {
		liked = "*"
	}
	fmt.Printf("[%s] %s %s: %s (%d likes, %d comments)\n",
		post.CreatedAt.Format("2006-01-02 15:04"), liked,
		post.CreatedBy.Firstname, post.Content, post.LikeCount, len(post.Comments))
	for _, c := range post.Comments {
		fmt.Printf("    %s: %s\n", c.CreatedBy.Firstname, c.Content)
	}
}
