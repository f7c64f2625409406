package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"roomchat/domain"
	"roomchat/repositories"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Error while reading config: ", err)
	}
	dbPath := flag.String("db", cfg.BadgerFilepath, "Path to badger DB")
	section := flag.String("section", "all", "What to print: users, rooms, messages or all")
	room := flag.Int64("room", 0, "Only print the messages of this room")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	snapshot, err := repositories.ReadSnapshot(db)
	if err != nil {
		log.Fatal(err)
	}

	if *section == "all" || *section == "users" {
		printUsers(snapshot.Users)
	}
	if *section == "all" || *section == "rooms" {
		printRooms(snapshot.Rooms)
	}
	if *section == "all" || *section == "messages" {
		messages := snapshot.Messages
		if *room != 0 {
			messages = lo.Filter(messages, func(m domain.Message, _ int) bool {
				return m.RoomID == domain.RoomID(*room)
			})
		}
		printMessages(messages)
	}
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// colored renders a name in the user's own color.
func colored(name, hex string) string {
	if hex == "" {
		return name
	}
	return color.HEX(hex).Sprint(name)
}

func printUsers(users []domain.User) {
	color.Bold.Println("Users")
	table := newTable("ID", "Username", "Color", "Created")
	for _, u := range users {
		table.Append([]string{
			strconv.FormatInt(int64(u.ID), 10),
			colored(u.Username, u.Color),
			u.Color,
			u.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	fmt.Println()
}

func printRooms(rooms []domain.Room) {
	color.Bold.Println("Rooms")
	table := newTable("ID", "Name", "Private", "Members")
	for _, r := range rooms {
		table.Append([]string{
			strconv.FormatInt(int64(r.ID), 10),
			r.Name,
			strconv.FormatBool(r.IsPrivate),
			strings.Join(lo.Map(r.Members, func(id domain.UserID, _ int) string {
				return strconv.FormatInt(int64(id), 10)
			}), ","),
		})
	}
	table.Render()
	fmt.Println()
}

func printMessages(messages []domain.Message) {
	color.Bold.Println("Messages")
	table := newTable("ID", "Room", "At", "Sender", "Content")
	for _, m := range messages {
		sender := m.Sender.Username
		if sender == "" {
			sender = fmt.Sprintf("#%d", m.SenderID)
		}
		table.Append([]string{
			strconv.FormatInt(int64(m.ID), 10),
			strconv.FormatInt(int64(m.RoomID), 10),
			m.CreatedAt.Format("15:04:05.000"),
			colored(sender, m.Sender.Color),
			lo.Ellipsis(m.Content, 60),
		})
	}
	table.Render()
}
