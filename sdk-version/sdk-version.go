package main

import (
	"fmt"

	"github.com/stepcounting/sdk-golang/stepcounter"
)

func main() {
	fmt.Printf("%s", stepcounter.VERSION)
}
