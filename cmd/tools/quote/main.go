package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/noah-isme/discount-quote/internal/discount"
)

type discountList []string

func (d *discountList) String() string { return strings.Join(*d, ",") }

func (d *discountList) Set(v string) error {
	*d = append(*d, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run prints the final price and total saved for a price and ordered discounts.
// Exit code 0 = ok, 1 = invalid input, 2 = usage error.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var discounts discountList
	price := fs.String("price", "", "initial price, e.g. 199.99")
	fs.Var(&discounts, "d", "discount token, repeatable: 10% or $20")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*price) == "" {
		fs.Usage()
		return 2
	}
	discounts = append(discounts, fs.Args()...)

	res, err := discount.CalculateString(*price, discounts...)
	if err != nil {
		fmt.Fprintf(stderr, "quote: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "final_price=%s total_saved=%s\n",
		res.FinalPrice.StringFixed(discount.CurrencyPlaces),
		res.TotalSaved.StringFixed(discount.CurrencyPlaces))
	return 0
}
