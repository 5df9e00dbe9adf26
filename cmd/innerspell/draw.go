package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hopetreehub/innerspell/internal/adapters/decks"
	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/reading"
)

// seededRNG gives reproducible draws for --seed.
type seededRNG struct{ r *rand.Rand }

func (s seededRNG) Intn(n int) int { return s.r.IntN(n) }

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw a spread locally without the AI interpretation",
	Long: `Draw runs a reading session offline: shuffle, reveal the pool and pick
cards for the chosen spread. It prints each card with its position and
orientation.

Examples:
  innerspell draw
  innerspell draw --spread celtic-cross --seed 42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spreadID, _ := cmd.Flags().GetString("spread")
		seed, _ := cmd.Flags().GetUint64("seed")

		spread, err := domain.LookupSpread(spreadID)
		if err != nil {
			return fmt.Errorf("%w: %q", err, spreadID)
		}
		style, _ := domain.LookupStyle("")
		deck, err := decks.NewEmbeddedStore().GetDeck(cmd.Context(), "")
		if err != nil {
			return err
		}

		var rng domain.RNG = stdRNG{}
		if cmd.Flags().Changed("seed") {
			rng = seededRNG{r: rand.New(rand.NewPCG(seed, seed))}
		}

		sess := reading.New("cli", deck.Cards, spread, style, rng)
		if err := sess.Shuffle(); err != nil {
			return err
		}
		if err := sess.Reveal(); err != nil {
			return err
		}
		for _, slot := range pickSlots(rng, domain.PoolSize, spread.NumCards) {
			if err := sess.ToggleAt(slot); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.HiWhiteString(spread.Name))
		for _, c := range sess.View().Selected {
			orientation := color.GreenString(c.Orientation.Label())
			if c.Orientation == domain.Reversed {
				orientation = color.RedString(c.Orientation.Label())
			}
			fmt.Fprintf(out, "%s  %s (%s)\n", color.CyanString("%-16s", c.Position), c.Name, orientation)
			fmt.Fprintf(out, "%18s%s\n", "", c.Meaning(c.Orientation))
		}
		return nil
	},
}

func init() {
	drawCmd.Flags().String("spread", domain.DefaultSpreadID, "Spread id (single-card, 3-card, relationship, celtic-cross)")
	drawCmd.Flags().Uint64("seed", 0, "Seed for a reproducible draw")
}

// pickSlots chooses n distinct pool slots, the way a querent would.
func pickSlots(rng domain.RNG, pool, n int) []int {
	slots := make([]int, pool)
	for i := range slots {
		slots[i] = i
	}
	for i := pool - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		slots[i], slots[j] = slots[j], slots[i]
	}
	return slots[:n]
}
