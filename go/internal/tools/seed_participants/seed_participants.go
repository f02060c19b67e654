package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/wheelraffle/go/internal/dbconfig"
	"github.com/mcdev12/wheelraffle/go/internal/participants"
)

func main() {
	path := "go/internal/assets/participants.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	reqs, err := participants.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert new participants, leaving existing ones (and their eligibility) alone
	var (
		total    = len(reqs)
		inserted int
		skipped  int
		errs     int
	)

	for _, p := range reqs {
		if p.ID == "" || p.Title == "" {
			fmt.Fprintf(os.Stderr, "skipping entry without id or title: %+v\n", p)
			errs++
			continue
		}

		var imageURL *string
		if p.ImageURL != "" {
			imageURL = &p.ImageURL
		}

		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO participants (id, title, image_url, is_eligible, updated_at)
            VALUES ($1, $2, $3, $4, NOW())
            ON CONFLICT (id) DO NOTHING
        `,
			p.ID, p.Title, imageURL, p.IsEligible,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting participant %s: %v\n", p.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Participants seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
