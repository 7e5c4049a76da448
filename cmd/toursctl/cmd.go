package main

import (
	"context"
	"fmt"
	"strconv"

	"cryptourist/internal/app"
	"cryptourist/internal/chain"
	"cryptourist/internal/config"
	"cryptourist/internal/log"
	"cryptourist/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configF   = "config"
	countryF  = "country"
	cityF     = "city"
	keywordF  = "q"
	tourF     = "tour"
	dateFmt   = "2006-01-02 15:04"
	noAddress = "-"
)

// appFactory собирает приложение по конфигурации. В тестах подменяется.
type appFactory func(ctx context.Context, cfg *config.Config) (*app.App, error)

func defaultFactory(ctx context.Context, cfg *config.Config) (*app.App, error) {
	return app.New(ctx, cfg, log.NewNopLogger())
}

func NewCmd() *cobra.Command {
	return newCmd(defaultFactory)
}

func newCmd(factory appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:          "toursctl",
		Short:        "Просмотр каталога туров и данных контракта бронирований",
		SilenceUsage: true,
	}
	root.PersistentFlags().String(configF, "", "Путь к YAML-файлу конфигурации.")

	withApp := func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfgFile, err := cmd.Flags().GetString(configF)
			if err != nil {
				return err
			}
			cfg, err := config.Load(viper.New(), cfgFile)
			if err != nil {
				return err
			}
			a, err := factory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a)
		}
	}

	root.AddCommand(
		toursCmd(withApp),
		reviewsCmd(withApp),
		bookingsCmd(withApp),
		articlesCmd(withApp),
		networkCmd(withApp),
	)
	return root
}

type wrapFn func(run func(cmd *cobra.Command, a *app.App) error) func(*cobra.Command, []string) error

func toursCmd(withApp wrapFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tours",
		Short: "Список туров каталога",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			country, _ := cmd.Flags().GetString(countryF)
			city, _ := cmd.Flags().GetString(cityF)
			keyword, _ := cmd.Flags().GetString(keywordF)

			symbol := a.Wallet.Network().NativeCurrency.Symbol
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Slug", "City", "Country", "Duration", "Distance", "Price"})
			tours := a.Tours.Search(country, city, keyword)
			for _, t := range tours {
				table.Append([]string{t.Slug, t.City, t.Country, t.Duration, t.Distance, chain.FormatAmount(t.Price, symbol)})
			}
			table.SetFooter([]string{"", "", "", "", "Total", strconv.Itoa(len(tours))})
			table.Render()
			return nil
		}),
	}
	cmd.Flags().String(countryF, "", "Страна (any - все)")
	cmd.Flags().String(cityF, "", "Город (any - все)")
	cmd.Flags().String(keywordF, "", "Слово в названии или описании")
	return cmd
}

func reviewsCmd(withApp wrapFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Отзывы туристов",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			tour, _ := cmd.Flags().GetString(tourF)
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Name", "Tour", "Rating"})
			for _, r := range a.Tours.Reviews(tour) {
				table.Append([]string{r.Name, r.Tour, strconv.FormatFloat(r.Rating, 'f', 1, 64)})
			}
			table.Render()
			return nil
		}),
	}
	cmd.Flags().String(tourF, "", "Название тура")
	return cmd
}

func bookingsCmd(withApp wrapFn) *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "Бронирования контракта и сводка",
		Long:  `Читает бронирования через провайдер кошелька (wallet.rpc_url). Без кошелька список пуст.`,
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			d, err := a.Bookings.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoFormatHeaders(false)
			table.SetHeader([]string{"ID", "Amount", "Fee", "Created", "Customer", "Payer", "Status"})
			for _, b := range d.Bookings {
				table.Append([]string{
					strconv.FormatInt(b.ID, 10),
					strconv.FormatFloat(b.TotalAmount, 'f', -1, 64),
					strconv.FormatFloat(b.OperatorFee, 'f', -1, 64),
					b.Timestamp.Format(dateFmt),
					b.Customer,
					payer(b),
					status(b),
				})
			}
			table.SetFooter([]string{
				"", "", "", "",
				fmt.Sprintf("paid %d/%d", d.Stats.Paid, d.Stats.Total),
				fmt.Sprintf("refunded %d", d.Stats.Refunded),
				strconv.FormatFloat(d.Stats.PaidSum, 'f', -1, 64),
			})
			table.Render()
			return nil
		}),
	}
}

func articlesCmd(withApp wrapFn) *cobra.Command {
	return &cobra.Command{
		Use:   "articles",
		Short: "Позиции, зарегистрированные в контракте",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			articles, err := a.Bookings.Articles(cmd.Context())
			if err != nil {
				return err
			}
			symbol := a.Wallet.Network().NativeCurrency.Symbol
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Title", "Provider", "Price", "Active"})
			for _, ar := range articles {
				table.Append([]string{ar.ID, ar.Title, ar.Provider, chain.FormatAmount(ar.Price, symbol), strconv.FormatBool(ar.Active)})
			}
			table.Render()
			return nil
		}),
	}
}

func networkCmd(withApp wrapFn) *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "Сеть, контракт и состояние кошелька",
		RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
			n := a.Wallet.Network()
			state := a.Wallet.State()
			address := state.Address
			if address == "" {
				address = noAddress
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Key", "Value"})
			table.AppendBulk([][]string{
				{"Chain", fmt.Sprintf("%s (%s)", n.ChainName, n.ChainID)},
				{"Currency", fmt.Sprintf("%s, %d decimals", n.NativeCurrency.Symbol, n.NativeCurrency.Decimals)},
				{"Contract", a.Settings.Read().ContractAddress},
				{"Wallet", strconv.FormatBool(state.Connected)},
				{"Account", address},
			})
			table.Render()
			return nil
		}),
	}
}

func payer(b model.Booking) string {
	if b.Payer == "" || b.Payer == (common.Address{}).Hex() {
		return noAddress
	}
	return b.Payer
}

func status(b model.Booking) string {
	switch {
	case b.IsRefunded:
		return "refunded"
	case b.IsCompleted:
		return "completed"
	case b.IsPaid:
		return "paid"
	default:
		return "pending"
	}
}
