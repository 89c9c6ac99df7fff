// Seeds a local database with a demo account plus, optionally, a few
// generated accounts. Meant for development only, it talks to the db
// directly and skips the http layer entirely.
package main

import (
	"context"
	"flag"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"

	"github.com/mkanilsson/workout-backend/internal/config"
	"github.com/mkanilsson/workout-backend/internal/db"
	"github.com/mkanilsson/workout-backend/internal/exercises"
	"github.com/mkanilsson/workout-backend/internal/users"
	"github.com/mkanilsson/workout-backend/internal/workouts"
	"github.com/mkanilsson/workout-backend/pkg"
)

type seeder struct {
	users     *users.Repo
	exercises *exercises.Repo
	workouts  *workouts.Repo
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	fakeUsers := flag.Int("fake-users", 0, "number of extra generated accounts to seed")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	secrets, err := config.LoadSecrets(ctx)
	if err != nil {
		log.Fatalf("load secrets: %s", err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     secrets.PostgresUser,
		DBPassword: secrets.PostgresPass,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	s := &seeder{
		users:     users.NewRepo(dbPool),
		exercises: exercises.NewRepo(dbPool),
		workouts:  workouts.NewRepo(dbPool),
	}

	s.seedDemoUser(ctx)

	for i := 0; i < *fakeUsers; i++ {
		s.seedFakeUser(ctx)
	}

	log.Infoln("seeding done")
}

func (s *seeder) seedDemoUser(ctx context.Context) {
	user := s.addUser(ctx, "example@example.com", "password")

	benchPress := s.addExercise(ctx, user.ID, "Bench press", exercises.TypeWeightOverAmount)
	running := s.addExercise(ctx, user.ID, "Running", exercises.TypeDistanceOverTime)
	squats := s.addExercise(ctx, user.ID, "Squats", exercises.TypeWeightOverAmount)
	counterRotation := s.addExercise(ctx, user.ID, "Counter rotation", exercises.TypeStatic)

	workout1, err := s.workouts.AddWorkout(ctx, user.ID)
	if err != nil {
		log.Fatalf("add workout: %s", err)
	}

	benchPressW1 := s.addOccurrence(ctx, user.ID, benchPress.ID, workout1.ID)
	s.addSet(ctx, user.ID, benchPressW1.ID, 20, 12, workouts.SetWarmup)
	s.addSet(ctx, user.ID, benchPressW1.ID, 30, 8, workouts.SetWarmup)
	s.addSet(ctx, user.ID, benchPressW1.ID, 40, 8, workouts.SetNormal)
	s.addSet(ctx, user.ID, benchPressW1.ID, 42.5, 6, workouts.SetNormal)

	squatsW1 := s.addOccurrence(ctx, user.ID, squats.ID, workout1.ID)
	s.addSet(ctx, user.ID, squatsW1.ID, 20, 12, workouts.SetWarmup)
	s.addSet(ctx, user.ID, squatsW1.ID, 30, 8, workouts.SetNormal)
	s.addSet(ctx, user.ID, squatsW1.ID, 40, 8, workouts.SetNormal)
	s.addSet(ctx, user.ID, squatsW1.ID, 50, 3, workouts.SetNormal)

	if err := s.workouts.FinishWorkout(ctx, workout1.ID); err != nil {
		log.Fatalf("finish workout: %s", err)
	}

	// second workout stays ongoing, handy for poking at the current-workout
	// endpoints right after seeding
	workout2, err := s.workouts.AddWorkout(ctx, user.ID)
	if err != nil {
		log.Fatalf("add workout: %s", err)
	}

	counterRotationW2 := s.addOccurrence(ctx, user.ID, counterRotation.ID, workout2.ID)
	s.addSet(ctx, user.ID, counterRotationW2.ID, 23, 20, workouts.SetNormal)
	s.addSet(ctx, user.ID, counterRotationW2.ID, 23, 20, workouts.SetNormal)
	s.addSet(ctx, user.ID, counterRotationW2.ID, 23, 19.5, workouts.SetNormal)

	runningW2 := s.addOccurrence(ctx, user.ID, running.ID, workout2.ID)
	s.addSet(ctx, user.ID, runningW2.ID, 1, 7*60+29, workouts.SetNormal)

	benchPressW2 := s.addOccurrence(ctx, user.ID, benchPress.ID, workout2.ID)
	s.addSet(ctx, user.ID, benchPressW2.ID, 20, 12, workouts.SetWarmup)
	s.addSet(ctx, user.ID, benchPressW2.ID, 30, 8, workouts.SetNormal)

	log.Infof("demo user seeded: %s / password", user.Email)
}

func (s *seeder) seedFakeUser(ctx context.Context) {
	user := s.addUser(ctx, gofakeit.Email(), gofakeit.Password(true, true, true, false, false, 12))

	exerciseTypes := []exercises.ExerciseType{
		exercises.TypeStatic,
		exercises.TypeDistanceOverTime,
		exercises.TypeWeightOverAmount,
	}

	var seeded []*exercises.Exercise
	for i := 0; i < gofakeit.Number(2, 5); i++ {
		exerciseType := exerciseTypes[rand.Intn(len(exerciseTypes))]
		seeded = append(seeded, s.addExercise(
			ctx, user.ID,
			gofakeit.VerbAction()+" "+gofakeit.NounConcrete(),
			exerciseType,
		))
	}

	for i := 0; i < gofakeit.Number(1, 3); i++ {
		workout, err := s.workouts.AddWorkout(ctx, user.ID)
		if err != nil {
			log.Fatalf("add workout: %s", err)
		}
		for _, exercise := range seeded {
			occurrence := s.addOccurrence(ctx, user.ID, exercise.ID, workout.ID)
			for j := 0; j < gofakeit.Number(1, 4); j++ {
				setType := workouts.SetNormal
				if j == 0 && gofakeit.Bool() {
					setType = workouts.SetWarmup
				}
				s.addSet(
					ctx, user.ID, occurrence.ID,
					float64(gofakeit.Number(10, 100)),
					float64(gofakeit.Number(3, 15)),
					setType,
				)
			}
		}
		if err := s.workouts.FinishWorkout(ctx, workout.ID); err != nil {
			log.Fatalf("finish workout: %s", err)
		}
	}

	log.Infof("fake user seeded: %s", user.Email)
}

func (s *seeder) addUser(ctx context.Context, email, password string) *users.User {
	hash, err := pkg.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %s", err)
	}
	user, err := s.users.Add(ctx, email, hash)
	if err != nil {
		log.Fatalf("add user %s: %s", email, err)
	}
	return user
}

func (s *seeder) addExercise(
	ctx context.Context,
	userID, name string,
	exerciseType exercises.ExerciseType,
) *exercises.Exercise {
	exercise, err := s.exercises.Add(ctx, userID, name, exerciseType, nil)
	if err != nil {
		log.Fatalf("add exercise %q: %s", name, err)
	}
	return exercise
}

func (s *seeder) addOccurrence(ctx context.Context, userID, exerciseID, workoutID string) *workouts.ExerciseWorkout {
	occurrence, err := s.workouts.AddOccurrence(ctx, userID, exerciseID, workoutID)
	if err != nil {
		log.Fatalf("add exercise to workout: %s", err)
	}
	return occurrence
}

func (s *seeder) addSet(
	ctx context.Context,
	userID, occurrenceID string,
	quality, quantity float64,
	setType workouts.SetType,
) {
	if _, err := s.workouts.AddSet(ctx, workouts.Set{
		UserID:            userID,
		ExerciseWorkoutID: occurrenceID,
		Quality:           quality,
		Quantity:          quantity,
		Type:              setType,
	}); err != nil {
		log.Fatalf("add set: %s", err)
	}
}
