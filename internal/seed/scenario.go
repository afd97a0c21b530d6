package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"minisocial/internal/models"

	"gopkg.in/yaml.v3"
)

// Scenario is a hand-written data set, usually loaded from YAML:
//
//	users: [alice, bob]
//	follows:
//	  - {from: alice, to: bob}
//	posts:
//	  - author: bob
//	    text: hello
//	    likes: [alice]
//	    comments:
//	      - {by: alice, text: welcome}
type Scenario struct {
	Users   []string         `yaml:"users"`
	Follows []ScenarioFollow `yaml:"follows"`
	Posts   []ScenarioPost   `yaml:"posts"`
}

type ScenarioFollow struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type ScenarioPost struct {
	Author   string            `yaml:"author"`
	Text     string            `yaml:"text"`
	MediaURL string            `yaml:"media_url"`
	Likes    []string          `yaml:"likes"`
	Comments []ScenarioComment `yaml:"comments"`
}

type ScenarioComment struct {
	By   string `yaml:"by"`
	Text string `yaml:"text"`
}

// ParseScenario decodes YAML from r. Unknown keys are rejected.
func ParseScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return &sc, nil
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadScenarioFile reads and parses the scenario at path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseScenario(f)
}

// Validate checks that every reference names a declared user.
func (sc *Scenario) Validate() error {
	known := make(map[string]struct{}, len(sc.Users))
	for _, u := range sc.Users {
		if strings.TrimSpace(u) == "" {
			return errors.New("scenario: empty username")
		}
		if _, dup := known[u]; dup {
			return fmt.Errorf("scenario: duplicate user %q", u)
		}
		known[u] = struct{}{}
	}
	check := func(where, name string) error {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("scenario: %s references unknown user %q", where, name)
		}
		return nil
	}

	var errs []error
	for _, f := range sc.Follows {
		errs = append(errs, check("follow", f.From), check("follow", f.To))
		if f.From == f.To {
			errs = append(errs, fmt.Errorf("scenario: %q cannot follow themselves", f.From))
		}
	}
	for i, p := range sc.Posts {
		where := fmt.Sprintf("post %d", i)
		errs = append(errs, check(where, p.Author))
		for _, l := range p.Likes {
			errs = append(errs, check(where+" like", l))
		}
		for _, c := range p.Comments {
			errs = append(errs, check(where+" comment", c.By))
		}
	}
	return errors.Join(errs...)
}

// ApplyScenario creates everything sc describes and returns the created
// users by name.
func (s *Seeder) ApplyScenario(ctx context.Context, sc *Scenario) (map[string]*models.User, Summary, error) {
	var sum Summary
	if err := sc.Validate(); err != nil {
		return nil, sum, err
	}

	byName := make(map[string]*models.User, len(sc.Users))
	for _, name := range sc.Users {
		u, err := s.CreateUser(ctx, name)
		if err != nil {
			return nil, sum, err
		}
		byName[name] = u
		sum.Users++
	}

	for _, f := range sc.Follows {
		if _, err := s.follows.Toggle(ctx, byName[f.From].ID, byName[f.To].ID); err != nil {
			return nil, sum, fmt.Errorf("follow %s -> %s: %w", f.From, f.To, err)
		}
		sum.Follows++
	}

	for _, p := range sc.Posts {
		post := &models.Post{UserID: byName[p.Author].ID, ContentText: p.Text, MediaURL: p.MediaURL}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, sum, err
		}
		sum.Posts++

		for _, name := range p.Likes {
			if _, err := s.posts.ToggleLike(ctx, post.ID, byName[name].ID); err != nil {
				return nil, sum, err
			}
			sum.Likes++
		}
		for _, c := range p.Comments {
			comment := &models.Comment{PostID: post.ID, UserID: byName[c.By].ID, CommentText: c.Text}
			if _, err := s.comments.Append(ctx, comment); err != nil {
				return nil, sum, err
			}
			sum.Comments++
		}
	}
	return byName, sum, nil
}
