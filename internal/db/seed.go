package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedMajors = []string{"Electrical Engineering", "Mechanical Engineering", "Civil Engineering", "Art", "Architecture"}
var seedYears = []string{"2026", "2027", "2028", "2029"}
var seedDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
var seedSubjects = []string{"Calculus", "Physics", "Chemistry", "Biology", "Statics", "Circuits", "Drawing", "Thermo"}

// SeedTestData resets the database and populates it with demo users,
// preferences, pending swipes and a few confirmed matches.
//
// Behavior:
//  1. Clears matches, swipes, preferences and users.
//  2. Creates 20 users spread across majors/years with hashed passwords
//     and randomized availability/subject preferences.
//  3. Records ~30 swipes; every 4th pair is made reciprocal and
//     promoted into a match the way the resolver would do it.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"matches", "swipes", "preferences", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"matches", "swipes", "preferences", "users"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('matches','swipes','preferences','users')")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		user := User{
			AuthID:       uuid.NewString(),
			Email:        fmt.Sprintf("student%d@cooper.edu", i),
			Name:         fmt.Sprintf("Student %d", i),
			Major:        seedMajors[i%len(seedMajors)],
			Year:         seedYears[i%len(seedYears)],
			PasswordHash: string(hash),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		pref := Preference{
			UserID:          user.ID,
			AvailableDays:   pickCSV(r, seedDays, 1+r.Intn(4)),
			SubjectsToTeach: pickCSV(r, seedSubjects, 1+r.Intn(3)),
			SubjectsToLearn: pickCSV(r, seedSubjects, 1+r.Intn(3)),
		}
		if err := db.Create(&pref).Error; err != nil {
			return fmt.Errorf("failed to seed preference: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Seeded %d users with preferences.", len(users))

	// Swipes and matches. Every 4th pair becomes reciprocal: the
	// pending swipe is consumed and a match row is written, exactly as
	// the resolver does it. A pair touched once is never touched
	// again, in either orientation, so matched pairs get no stray
	// swipe and no pair matches twice.
	seen := make(map[string]bool)
	counter := 0
	for i := 0; i < 30; i++ {
		from := users[r.Intn(len(users))]
		to := users[r.Intn(len(users))]
		if from.ID == to.ID {
			continue
		}
		key := PairKey(from.ID, to.ID)
		if seen[key] {
			continue
		}
		seen[key] = true

		if counter%4 == 3 {
			match := Match{User1ID: to.ID, User2ID: from.ID}
			if err := db.Create(&match).Error; err != nil {
				return fmt.Errorf("failed to seed match: %w", err)
			}
		} else {
			swipe := Swipe{FromUserID: from.ID, ToUserID: to.ID}
			if err := db.Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}
		}
		counter++
	}
	log.Printf("Seeded %d swipe/match pairs.", counter)

	return nil
}

func pickCSV(r *rand.Rand, pool []string, n int) string {
	idx := r.Perm(len(pool))
	out := ""
	for i := 0; i < n && i < len(idx); i++ {
		if out != "" {
			out += ","
		}
		out += pool[idx[i]]
	}
	return out
}
