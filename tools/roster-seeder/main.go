// Command roster-seeder populates a ClassPulse instance with demo data:
// accounts via the admin API and school events via the NATS bus.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/classpulse-systems/classpulse/internal/notify"
)

// Roster is the YAML file format consumed by --roster. When no file is
// given the seeder invents accounts with gofakeit.
type Roster struct {
	Users []RosterUser `yaml:"users"`
}

type RosterUser struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

var (
	apiURL     string
	adminToken string
	rosterPath string
	count      int

	natsURL  string
	interval time.Duration
	students []string
)

func main() {
	root := &cobra.Command{
		Use:   "roster-seeder",
		Short: "Seed a ClassPulse instance with demo accounts and events",
	}

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Create demo user accounts through the admin API",
		RunE:  runUsers,
	}
	usersCmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "ClassPulse API base URL")
	usersCmd.Flags().StringVar(&adminToken, "token", "", "admin access token (required)")
	usersCmd.Flags().StringVar(&rosterPath, "roster", "", "YAML roster file (optional)")
	usersCmd.Flags().IntVar(&count, "count", 20, "number of invented accounts when no roster is given")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Publish demo school events to the NATS bus",
		RunE:  runEvents,
	}
	eventsCmd.Flags().StringVar(&natsURL, "nats", nats.DefaultURL, "NATS server URL")
	eventsCmd.Flags().IntVar(&count, "count", 50, "number of events to publish")
	eventsCmd.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "delay between events")
	eventsCmd.Flags().StringSliceVar(&students, "students", nil, "student ids to target (required)")

	root.AddCommand(usersCmd, eventsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runUsers(cmd *cobra.Command, args []string) error {
	if adminToken == "" {
		return fmt.Errorf("admin token is required, use --token")
	}

	users, err := loadRoster()
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	created := 0
	for _, u := range users {
		if err := createUser(client, u); err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", u.Username, err)
			continue
		}
		created++
	}

	fmt.Printf("created %d/%d accounts\n", created, len(users))
	return nil
}

func loadRoster() ([]RosterUser, error) {
	if rosterPath != "" {
		data, err := os.ReadFile(rosterPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read roster: %w", err)
		}
		var roster Roster
		if err := yaml.Unmarshal(data, &roster); err != nil {
			return nil, fmt.Errorf("failed to parse roster: %w", err)
		}
		return roster.Users, nil
	}

	gofakeit.Seed(time.Now().UnixNano())

	roles := [][]string{
		{"student"},
		{"student"},
		{"teacher"},
		{"parent"},
	}

	users := make([]RosterUser, 0, count)
	for i := 0; i < count; i++ {
		first := strings.ToLower(gofakeit.FirstName())
		last := strings.ToLower(gofakeit.LastName())
		users = append(users, RosterUser{
			Username: fmt.Sprintf("%s.%s%d", first, last, gofakeit.Number(10, 99)),
			Email:    fmt.Sprintf("%s.%s@%s", first, last, gofakeit.DomainName()),
			Password: gofakeit.Password(true, true, true, false, false, 16),
			Roles:    roles[rand.Intn(len(roles))],
		})
	}
	return users, nil
}

func createUser(client *http.Client, u RosterUser) error {
	body, err := json.Marshal(map[string]any{
		"username": u.Username,
		"email":    u.Email,
		"password": u.Password,
		"roles":    u.Roles,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, apiURL+"/api/v1/users", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("api returned %s", resp.Status)
	}
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	if len(students) == 0 {
		return fmt.Errorf("at least one student id is required, use --students")
	}

	nc, err := nats.Connect(natsURL, nats.Name("roster-seeder"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Drain()

	gofakeit.Seed(time.Now().UnixNano())

	courses := []string{"Mathematics", "Physics", "History", "Biology", "English"}
	grades := []string{"A", "A-", "B+", "B", "C+", "C"}
	statuses := []string{"present", "absent", "late"}

	published := 0
	for i := 0; i < count; i++ {
		student := students[rand.Intn(len(students))]
		course := courses[rand.Intn(len(courses))]

		var subject string
		var payload any
		switch rand.Intn(3) {
		case 0:
			subject = notify.SubjectGradePosted
			payload = notify.GradeEvent{
				StudentID: student,
				Course:    course,
				Grade:     grades[rand.Intn(len(grades))],
			}
		case 1:
			subject = notify.SubjectAssignmentCreated
			payload = notify.AssignmentEvent{
				StudentID: student,
				Course:    course,
				Title:     gofakeit.Sentence(3),
				DueDate:   time.Now().AddDate(0, 0, rand.Intn(14)+1).Format("2006-01-02"),
			}
		default:
			subject = notify.SubjectAttendanceRecorded
			payload = notify.AttendanceEvent{
				StudentID: student,
				Course:    course,
				Status:    statuses[rand.Intn(len(statuses))],
				Date:      time.Now().Format("2006-01-02"),
			}
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := nc.Publish(subject, data); err != nil {
			fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
			continue
		}
		published++

		if interval > 0 && i < count-1 {
			time.Sleep(interval)
		}
	}

	fmt.Printf("published %d/%d events\n", published, count)
	return nc.Flush()
}
