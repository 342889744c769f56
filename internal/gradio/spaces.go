package gradio

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSpaces are the chat spaces addressable by index ("0", "1", ...).
var DefaultSpaces = []Endpoint{
	{Root: "https://mikeee-chatglm2-6b-4bit.hf.space", APIName: "/predict", FnIndex: 1, Transport: TransportWS},
	{Root: "https://huggingface-projects-llama-2-13b-chat.hf.space", APIName: "/chat", FnIndex: 5, Transport: TransportWS},
	{Root: "https://ysharma-explore-llamav2-with-tgi.hf.space", APIName: "/chat", FnIndex: 0, Transport: TransportSSE},
	{Root: "https://mosaicml-mpt-30b-chat.hf.space", APIName: "/chat", FnIndex: 3, Transport: TransportWS},
}

const hfSpacesPrefix = "https://huggingface.co/spaces/"

// Resolve maps a model identifier to an Endpoint.
//
// A decimal identifier indexes the client's built-in spaces. A huggingface.co
// space URL or a bare "owner/name" maps to the space's hf.space origin. Any
// other http(s) URL is taken as the space root. The latter two use the
// client's default API name, fn index and transport.
func (c *Client) Resolve(model string) (Endpoint, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Endpoint{}, fmt.Errorf("%w: empty identifier", ErrUnknownModel)
	}
	if n, err := strconv.Atoi(model); err == nil {
		if n < 0 || n >= len(c.spaces) {
			return Endpoint{}, fmt.Errorf("%w: no built-in space at index %d", ErrUnknownModel, n)
		}
		return c.spaces[n], nil
	}

	root, err := spaceRoot(model)
	if err != nil {
		return Endpoint{}, err
	}
	ep := c.defaults
	ep.Root = root
	return ep, nil
}

func spaceRoot(id string) (string, error) {
	if rest, ok := strings.CutPrefix(id, hfSpacesPrefix); ok {
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return "", fmt.Errorf("%w: malformed space URL %q", ErrUnknownModel, id)
		}
		return hfRoot(parts[0], parts[1]), nil
	}

	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		u, err := url.Parse(id)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: malformed URL %q", ErrUnknownModel, id)
		}
		return u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"), nil
	}

	owner, name, ok := strings.Cut(id, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") || strings.ContainsAny(id, " \t") {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return hfRoot(owner, name), nil
}

func hfRoot(owner, name string) string {
	return "https://" + subdomain(owner) + "-" + subdomain(name) + ".hf.space"
}

func subdomain(s string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(strings.ToLower(s))
}
