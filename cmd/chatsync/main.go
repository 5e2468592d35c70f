// chatsync follows a chat channel from the terminal.
package main

import "github.com/contenox/chatsync/internal/chatcli"

func main() {
	chatcli.Main()
}
