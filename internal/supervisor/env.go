package supervisor

import "fmt"

// DisplayEnv implements §4.E step 5 and §6.5: the environment pair
// exported to the router image so it and its children can see which
// display and process group they belong to.
func DisplayEnv(n, pgid int) []string {
	return []string{
		fmt.Sprintf("MDS_DISPLAY=:%d", n),
		fmt.Sprintf("MDS_PGROUP=%d", pgid),
	}
}
