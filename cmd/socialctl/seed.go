package main

import (
	"fmt"

	"minisocial/internal/database"
	"minisocial/internal/seed"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo data",
	Long: `Populate the database with demo data.

Without --scenario a random social mesh is generated. With --scenario the
named YAML file is applied instead. Every seeded user has the password
"` + seed.DefaultPassword + `".`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		opts := seed.DefaultOptions()
		opts.Users, _ = flags.GetInt("users")
		opts.PostsPerUser, _ = flags.GetInt("posts")
		opts.FollowsPerUser, _ = flags.GetInt("follows")
		opts.SkipBcrypt, _ = flags.GetBool("fast")
		opts.RandSeed, _ = flags.GetInt64("rand-seed")
		clean, _ := flags.GetBool("clean")
		scenarioPath, _ := flags.GetString("scenario")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx := cmd.Context()
		s := seed.NewSeeder(db, opts)
		if clean {
			if err := s.ClearAll(ctx); err != nil {
				return err
			}
		}

		var sum seed.Summary
		if scenarioPath != "" {
			sc, err := seed.LoadScenarioFile(scenarioPath)
			if err != nil {
				return err
			}
			_, sum, err = s.ApplyScenario(ctx, sc)
			if err != nil {
				return err
			}
		} else {
			sum, err = s.SeedSocialMesh(ctx)
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "users=%d follows=%d posts=%d likes=%d comments=%d\n",
			sum.Users, sum.Follows, sum.Posts, sum.Likes, sum.Comments)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	def := seed.DefaultOptions()
	seedCmd.Flags().Int("users", def.Users, "number of users to create")
	seedCmd.Flags().Int("posts", def.PostsPerUser, "posts per user")
	seedCmd.Flags().Int("follows", def.FollowsPerUser, "follows per user")
	seedCmd.Flags().Bool("fast", false, "store passwords without bcrypt")
	seedCmd.Flags().Bool("clean", false, "delete existing data first")
	seedCmd.Flags().Int64("rand-seed", 0, "random seed for reproducible data")
	seedCmd.Flags().String("scenario", "", "YAML scenario file to apply")
}
