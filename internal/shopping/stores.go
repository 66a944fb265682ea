package shopping

import (
	"net/url"
	"strings"
)

// StoreLink is a retailer search page for a shopping item.
type StoreLink struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type retailer struct {
	id, name, searchURL string
}

var retailers = []retailer{
	{"pyaterochka", "Пятёрочка", "https://5ka.ru/search/?text=%s"},
	{"magnit", "Магнит", "https://magnit.ru/promo/?q=%s"},
	{"perekrestok", "Перекрёсток", "https://www.perekrestok.ru/cat/search?search=%s"},
	{"samokat", "Самокат", "https://samokat.ru/search?query=%s"},
	{"vkusvill", "ВкусВилл", "https://vkusvill.ru/search/?text=%s"},
	{"auchan", "Ашан", "https://www.auchan.ru/search/?text=%s"},
	{"lenta", "Лента", "https://lenta.com/search/?query=%s"},
	{"yandex_lavka", "Яндекс Лавка", "https://lavka.yandex.ru/search?text=%s"},
	{"ozon", "Ozon", "https://www.ozon.ru/search/?text=%s"},
	{"wildberries", "Wildberries", "https://www.wildberries.ru/catalog/0/search.aspx?search=%s"},
}

// StoreLinks returns a search link per retailer for name. A blank name
// yields no links.
func StoreLinks(name string) []StoreLink {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	q := url.QueryEscape(name)
	links := make([]StoreLink, 0, len(retailers))
	for _, r := range retailers {
		links = append(links, StoreLink{
			ID:   r.id,
			Name: r.name,
			URL:  strings.Replace(r.searchURL, "%s", q, 1),
		})
	}
	return links
}
