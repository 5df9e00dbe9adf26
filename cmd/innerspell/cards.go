package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hopetreehub/innerspell/internal/adapters/decks"
	"github.com/hopetreehub/innerspell/internal/domain"
)

var cardsCmd = &cobra.Command{
	Use:   "cards [card_id]",
	Short: "List the card catalog or show one card",
	Long: `Cards prints the embedded 78-card catalog. With a card id it shows the
card's keywords and meanings in both orientations.

Examples:
  innerspell cards
  innerspell cards --suit cups
  innerspell cards major_00`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deck, err := decks.NewEmbeddedStore().GetDeck(cmd.Context(), "")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			for _, c := range deck.Cards {
				if c.ID == args[0] {
					printCard(out, c)
					return nil
				}
			}
			return fmt.Errorf("card %q not found", args[0])
		}

		suit, _ := cmd.Flags().GetString("suit")
		if suit != "" && !domain.Suit(suit).Valid() {
			return fmt.Errorf("unknown suit %q", suit)
		}
		n := 0
		for _, c := range deck.Cards {
			if suit != "" && string(c.Suit) != suit {
				continue
			}
			fmt.Fprintf(out, "%-22s %s\n", color.CyanString(c.ID), c.Name)
			n++
		}
		fmt.Fprintf(out, "\n%d cards\n", n)
		return nil
	},
}

func init() {
	cardsCmd.Flags().StringP("suit", "s", "", "Only list cards of this suit (major, wands, cups, swords, pentacles)")
}

func printCard(out io.Writer, c domain.Card) {
	fmt.Fprintln(out, color.CyanString("Card: ")+color.HiWhiteString(c.Name))
	fmt.Fprintln(out, color.CyanString("ID:   ")+color.HiWhiteString(c.ID))
	fmt.Fprintln(out, color.CyanString("Suit: ")+color.HiWhiteString("%s", c.Suit))
	for _, o := range []domain.Orientation{domain.Upright, domain.Reversed} {
		fmt.Fprintln(out)
		fmt.Fprintln(out, color.YellowString(o.Label()))
		fmt.Fprintln(out, "  "+strings.Join(c.Keywords(o), ", "))
		fmt.Fprintln(out, "  "+c.Meaning(o))
	}
}
